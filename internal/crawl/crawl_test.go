package crawl_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jonesrussell/golibrary/internal/crawl"
	"github.com/jonesrussell/golibrary/internal/domain"
)

func strPtr(s string) *string { return &s }

// fakeSaver records save calls and simulates hash-based skip detection.
type fakeSaver struct {
	mu sync.Mutex

	// knownHashes maps originURI to the hash stored from a prior crawl.
	knownHashes map[string]string

	saved   []*crawl.SaveFileRequest
	omitted []*crawl.OmittedFile
}

func (s *fakeSaver) SaveCrawledFile(_ context.Context, req *crawl.SaveFileRequest) (*crawl.SavedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, req)

	file := &domain.LibraryFile{
		ID:        uuid.NewString(),
		LibraryID: req.LibraryID,
		Name:      req.Name,
		OriginURI: req.OriginURI,
		MimeType:  req.MimeType,
		Size:      req.Size,
	}

	known, exists := s.knownHashes[req.OriginURI]
	if exists && req.ContentHash != nil && known == *req.ContentHash {
		return &crawl.SavedFile{File: file, SkipProcessing: true}, nil
	}
	return &crawl.SavedFile{File: file, WasUpdated: exists}, nil
}

func (s *fakeSaver) RecordOmittedFile(_ context.Context, rec *crawl.OmittedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitted = append(s.omitted, rec)
	return nil
}

// collect drains an iterator fully and closes it.
func collect(ctx context.Context, it *crawl.Iterator) []*crawl.DiscoveredFile {
	defer it.Close()
	var out []*crawl.DiscoveredFile
	for {
		file, ok := it.Next(ctx)
		if !ok {
			return out
		}
		out = append(out, file)
	}
}
