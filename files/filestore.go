package files

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nestboard/nestboard/domain"
	"github.com/nestboard/nestboard/models"
)

// Store keeps attachment files on local disk under baseDir/yyyy/mm/dd and
// records every stored file for timed cleanup. Multi-file uploads are
// all-or-nothing: when a later file fails, files already written in the
// same request are deleted again.
type Store struct {
	db      *gorm.DB
	baseDir string
	baseURL string
	maxSize int64
	ttl     time.Duration
	log     *zap.SugaredLogger
}

// New builds a Store. maxSize caps a single file; ttl is how long unclaimed
// uploads survive before the reaper removes them.
func New(db *gorm.DB, baseDir, baseURL string, maxSize int64, ttl time.Duration, log *zap.SugaredLogger) *Store {
	if maxSize <= 0 {
		maxSize = 50 * 1024 * 1024
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{db: db, baseDir: baseDir, baseURL: baseURL, maxSize: maxSize, ttl: ttl, log: log}
}

// Upload stores every file and returns their public URLs. On any failure
// the files already written in this call are deleted before the error is
// returned, so a partially-failed upload leaves nothing behind.
func (s *Store) Upload(userID uint, headers []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, 0, len(headers))
	for _, fh := range headers {
		url, err := s.saveOne(userID, fh)
		if err != nil {
			s.Delete(urls)
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (s *Store) saveOne(userID uint, fh *multipart.FileHeader) (string, error) {
	if fh.Size > 0 && fh.Size > s.maxSize {
		return "", domain.Invalidf("file %s exceeds the %d byte limit", fh.Filename, s.maxSize)
	}
	src, err := fh.Open()
	if err != nil {
		return "", &domain.DependencyError{Op: "file store", Err: err}
	}
	defer src.Close()

	now := time.Now()
	day := now.Format("2006/01/02")
	dir := filepath.Join(s.baseDir, day)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &domain.DependencyError{Op: "file store", Err: err}
	}

	name := filepath.Base(fh.Filename)
	if name == "." || name == "" {
		name = fmt.Sprintf("file_%d", now.UnixNano())
	}
	safeName := fmt.Sprintf("%d_%d_%s", now.UnixNano(), userID, name)
	dstPath := filepath.Join(dir, safeName)

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", &domain.DependencyError{Op: "file store", Err: err}
	}
	defer dst.Close()

	written, err := io.Copy(dst, &io.LimitedReader{R: src, N: s.maxSize + 1})
	if err != nil {
		_ = os.Remove(dstPath)
		return "", &domain.DependencyError{Op: "file store", Err: err}
	}
	if written > s.maxSize {
		_ = os.Remove(dstPath)
		return "", domain.Invalidf("file %s exceeds the %d byte limit", fh.Filename, s.maxSize)
	}

	url := fmt.Sprintf("%s/%s/%s", s.baseURL, day, safeName)
	absPath, _ := filepath.Abs(dstPath)
	if err := s.db.Create(&models.UploadedFile{
		FilePath: absPath,
		URL:      url,
		ExpireAt: now.Add(s.ttl),
	}).Error; err != nil {
		// the reaper cannot see an unrecorded file; refuse rather than leak
		_ = os.Remove(dstPath)
		return "", &domain.DependencyError{Op: "file store", Err: err}
	}
	return url, nil
}

// Delete removes the files behind the given URLs, best-effort.
func (s *Store) Delete(urls []string) {
	for _, url := range urls {
		var rec models.UploadedFile
		if err := s.db.Where("url = ?", url).First(&rec).Error; err != nil {
			continue
		}
		if rec.FilePath != "" {
			_ = os.Remove(rec.FilePath)
		}
		if err := s.db.Delete(&models.UploadedFile{}, rec.ID).Error; err != nil {
			s.log.Warnf("failed to drop upload record %d: %v", rec.ID, err)
		}
	}
}

// Claim extends the lifetime of files that got referenced by a persisted
// post or reply so the reaper leaves them alone. A non-positive keep
// marks the files permanent.
func (s *Store) Claim(urls []string, keep time.Duration) {
	if len(urls) == 0 {
		return
	}
	if keep <= 0 {
		keep = 100 * 365 * 24 * time.Hour
	}
	if err := s.db.Model(&models.UploadedFile{}).
		Where("url IN ?", urls).
		UpdateColumn("expire_at", time.Now().Add(keep)).Error; err != nil {
		s.log.Warnf("failed to claim uploads: %v", err)
	}
}

// StartReaper launches the background loop that removes expired upload
// files and their records. Best-effort; failures are logged and retried on
// the next tick.
func (s *Store) StartReaper(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		for {
			time.Sleep(interval)
			var items []models.UploadedFile
			if err := s.db.Where("expire_at <= ?", time.Now()).Limit(100).Find(&items).Error; err != nil {
				s.log.Warnf("upload reaper query failed: %v", err)
				continue
			}
			for _, it := range items {
				if it.FilePath != "" {
					_ = os.Remove(it.FilePath)
				}
				if err := s.db.Delete(&models.UploadedFile{}, it.ID).Error; err != nil {
					s.log.Warnf("upload reaper delete failed for %d: %v", it.ID, err)
				}
			}
		}
	}()
}
