package coordination

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/golibrary/internal/logger"
)

const (
	defaultLeaderTTL     = 30 * time.Second
	defaultRenewInterval = 10 * time.Second
	defaultElectInterval = 5 * time.Second
	schedulerLeaderKey   = keyPrefix + "scheduler:leader"
)

// LeaderElection elects one scheduler instance to fire cron crawls, so a
// horizontally scaled deployment does not start duplicate runs.
type LeaderElection struct {
	client        *redis.Client
	key           string
	id            string
	ttl           time.Duration
	renewInterval time.Duration
	electInterval time.Duration
	logger        logger.Interface

	isLeader atomic.Bool
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewSchedulerLeaderElection creates leader election on the scheduler key.
func NewSchedulerLeaderElection(client *redis.Client, log logger.Interface) *LeaderElection {
	return &LeaderElection{
		client:        client,
		key:           schedulerLeaderKey,
		id:            uuid.NewString(),
		ttl:           defaultLeaderTTL,
		renewInterval: defaultRenewInterval,
		electInterval: defaultElectInterval,
		logger:        log.WithComponent("coordination.leader"),
		stop:          make(chan struct{}),
	}
}

// Start begins campaigning in the background.
func (l *LeaderElection) Start(ctx context.Context) {
	l.wg.Add(1)
	go l.run(ctx)
}

// Stop ends the campaign and resigns leadership if held.
func (l *LeaderElection) Stop(ctx context.Context) {
	close(l.stop)
	l.wg.Wait()
	if l.isLeader.Load() {
		l.resign(ctx)
	}
}

// IsLeader reports whether this instance currently leads.
func (l *LeaderElection) IsLeader() bool {
	return l.isLeader.Load()
}

func (l *LeaderElection) run(ctx context.Context) {
	defer l.wg.Done()

	elect := time.NewTicker(l.electInterval)
	defer elect.Stop()
	renew := time.NewTicker(l.renewInterval)
	defer renew.Stop()

	l.campaign(ctx)

	for {
		select {
		case <-ctx.Done():
			l.markLost()
			return
		case <-l.stop:
			l.markLost()
			return
		case <-elect.C:
			if !l.isLeader.Load() {
				l.campaign(ctx)
			}
		case <-renew.C:
			if l.isLeader.Load() {
				l.renew(ctx)
			}
		}
	}
}

func (l *LeaderElection) campaign(ctx context.Context) {
	acquired, err := l.client.SetNX(ctx, l.key, l.id, l.ttl).Result()
	if err != nil {
		l.logger.Error("leader election attempt failed", "error", err)
		return
	}
	if acquired {
		l.logger.Info("acquired scheduler leadership", "instance_id", l.id)
		l.isLeader.Store(true)
	}
}

func (l *LeaderElection) renew(ctx context.Context) {
	result, err := extendScript.Run(ctx, l.client, []string{l.key}, l.id, l.ttl.Milliseconds()).Int()
	if err != nil {
		l.logger.Error("failed to renew scheduler leadership", "error", err)
		l.markLost()
		return
	}
	if result == 0 {
		l.markLost()
	}
}

func (l *LeaderElection) resign(ctx context.Context) {
	if _, err := unlockScript.Run(ctx, l.client, []string{l.key}, l.id).Int(); err != nil {
		l.logger.Error("failed to resign scheduler leadership", "error", err)
	}
	l.markLost()
}

func (l *LeaderElection) markLost() {
	if l.isLeader.CompareAndSwap(true, false) {
		l.logger.Info("lost scheduler leadership", "instance_id", l.id)
	}
}
