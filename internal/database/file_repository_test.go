package database_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/jonesrussell/golibrary/internal/crawl"
	"github.com/jonesrussell/golibrary/internal/database"
	"github.com/jonesrussell/golibrary/internal/files"
)

// fileColumns lists the columns returned by library_files SELECT queries.
var fileColumns = []string{
	"id", "library_id", "crawled_by_crawler_id", "origin_uri", "name", "mime_type", "size",
	"origin_file_hash", "origin_modification_date", "processing_error_message",
	"processing_error_at", "archived_at", "created_at", "updated_at",
}

func fileRow(id, hash string) *sqlmock.Rows {
	now := time.Now()
	var size int64 = 12
	return sqlmock.NewRows(fileColumns).AddRow(
		id, "lib-1", "crawler-1", "smb://share/doc.txt", "doc.txt", "text/plain", size,
		hash, nil, nil, nil, nil, now, now,
	)
}

func saveRequest(content []byte, hash string) *crawl.SaveFileRequest {
	size := int64(len(content))
	return &crawl.SaveFileRequest{
		Name:        "doc.txt",
		OriginURI:   "smb://share/doc.txt",
		LibraryID:   "lib-1",
		CrawlerID:   "crawler-1",
		MimeType:    "text/plain",
		Size:        &size,
		Content:     content,
		ContentHash: &hash,
	}
}

func TestSaveCrawledFile_InsertsNewFileAndStagesContent(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	content := files.NewStorage(t.TempDir())
	repo := database.NewLibraryFileRepository(db, content, noopLogger())

	mock.ExpectQuery("SELECT .+ FROM library_files WHERE crawled_by_crawler_id").
		WithArgs("crawler-1", "smb://share/doc.txt").
		WillReturnRows(sqlmock.NewRows(fileColumns))

	mock.ExpectQuery("INSERT INTO library_files").
		WillReturnRows(fileRow("file-1", "hash-a"))

	saved, err := repo.SaveCrawledFile(context.Background(), saveRequest([]byte("file content"), "hash-a"))
	if err != nil {
		t.Fatalf("SaveCrawledFile() error = %v", err)
	}
	if saved.SkipProcessing {
		t.Error("expected new file not to be skipped")
	}
	if saved.WasUpdated {
		t.Error("expected new file not to be marked updated")
	}

	staged, err := os.ReadFile(content.UploadPath("lib-1", "file-1"))
	if err != nil {
		t.Fatalf("expected staged content: %v", err)
	}
	if string(staged) != "file content" {
		t.Errorf("staged content = %q", staged)
	}

	expectationsMet(t, mock)
}

func TestSaveCrawledFile_UnchangedHashSkips(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := database.NewLibraryFileRepository(db, nil, noopLogger())

	mock.ExpectQuery("SELECT .+ FROM library_files WHERE crawled_by_crawler_id").
		WithArgs("crawler-1", "smb://share/doc.txt").
		WillReturnRows(fileRow("file-1", "hash-a"))

	mock.ExpectExec("UPDATE library_files SET updated_at").
		WithArgs("file-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	saved, err := repo.SaveCrawledFile(context.Background(), saveRequest([]byte("file content"), "hash-a"))
	if err != nil {
		t.Fatalf("SaveCrawledFile() error = %v", err)
	}
	if !saved.SkipProcessing {
		t.Error("expected unchanged file to be skipped")
	}

	expectationsMet(t, mock)
}

func TestSaveCrawledFile_ChangedHashUpdates(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := database.NewLibraryFileRepository(db, nil, noopLogger())

	mock.ExpectQuery("SELECT .+ FROM library_files WHERE crawled_by_crawler_id").
		WithArgs("crawler-1", "smb://share/doc.txt").
		WillReturnRows(fileRow("file-1", "hash-old"))

	mock.ExpectQuery("UPDATE library_files SET").
		WillReturnRows(fileRow("file-1", "hash-new"))

	saved, err := repo.SaveCrawledFile(context.Background(), saveRequest([]byte("new content"), "hash-new"))
	if err != nil {
		t.Fatalf("SaveCrawledFile() error = %v", err)
	}
	if saved.SkipProcessing {
		t.Error("expected changed file not to be skipped")
	}
	if !saved.WasUpdated {
		t.Error("expected changed file to be marked updated")
	}

	expectationsMet(t, mock)
}

func TestSaveCrawledFile_ProcessingErrorSkipsContent(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := database.NewLibraryFileRepository(db, nil, noopLogger())

	mock.ExpectQuery("SELECT .+ FROM library_files WHERE crawled_by_crawler_id").
		WithArgs("crawler-1", "smb://share/doc.txt").
		WillReturnRows(sqlmock.NewRows(fileColumns))

	mock.ExpectQuery("INSERT INTO library_files").
		WillReturnRows(fileRow("file-1", ""))

	oversized := "file exceeds the maximum processable size"
	req := saveRequest(nil, "")
	req.ContentHash = nil
	req.ProcessingError = &oversized

	saved, err := repo.SaveCrawledFile(context.Background(), req)
	if err != nil {
		t.Fatalf("SaveCrawledFile() error = %v", err)
	}
	if !saved.SkipProcessing {
		t.Error("expected processing-error file to skip processing")
	}

	expectationsMet(t, mock)
}

func TestRecordOmittedFile(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := database.NewLibraryFileRepository(db, nil, noopLogger())

	mock.ExpectExec("UPDATE library_files SET archived_at").
		WithArgs("lib-1", "smb://share/skip.tmp").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec("INSERT INTO library_updates").
		WillReturnResult(sqlmock.NewResult(0, 1))

	filterValue := "*.tmp"
	err := repo.RecordOmittedFile(context.Background(), &crawl.OmittedFile{
		LibraryID:   "lib-1",
		FilePath:    "smb://share/skip.tmp",
		FileName:    "skip.tmp",
		Reason:      "excluded by pattern",
		FilterType:  "exclude_pattern",
		FilterValue: &filterValue,
	})
	if err != nil {
		t.Fatalf("RecordOmittedFile() error = %v", err)
	}

	expectationsMet(t, mock)
}
