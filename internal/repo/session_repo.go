package repo

import (
	"context"
	"errors"
	"os"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/ytqa/internal/model"
	appErr "github.com/xxxsen/ytqa/internal/pkg/errors"
)

// SessionRepo persists the loaded video session between CLI invocations.
type SessionRepo struct {
	path string
}

func NewSessionRepo(path string) *SessionRepo {
	return &SessionRepo{path: path}
}

func (r *SessionRepo) Get(ctx context.Context) (*model.Session, error) {
	var sess model.Session
	found, err := readJSON(r.path, &sess)
	if err != nil {
		logutil.GetLogger(ctx).Warn("session file unreadable", zap.String("path", r.path), zap.Error(err))
		return nil, appErr.ErrNoSession
	}
	if !found || sess.ID == "" {
		return nil, appErr.ErrNoSession
	}
	return &sess, nil
}

func (r *SessionRepo) Save(ctx context.Context, sess *model.Session) error {
	_ = ctx
	return writeJSONAtomic(r.path, sess)
}

func (r *SessionRepo) Delete(ctx context.Context) error {
	_ = ctx
	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
