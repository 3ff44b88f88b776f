// Package editor runs a wizard session for one draft: it restores the snapshot from
// the draft store, applies edits, moves between steps and autosaves.
package editor

import (
	"context"
	"errors"
	"time"

	"rankwell/apperrors"
	"rankwell/auth"
	"rankwell/draft"
	"rankwell/metrics"
	"rankwell/wizard"
)

// Kind describes one draft type to the generic editor.
type Kind[D any, P any] struct {
	Steps    []wizard.Step
	Key      func(userID, entityID string) string
	New      func() D
	Seed     func(ctx context.Context, s *auth.Session, entityID string) (D, error)
	Apply    func(d D, p P)
	Validate func(d D, step int) []apperrors.Violation
	// Authorize runs before anything is read; nil allows any signed-in user.
	Authorize func(s *auth.Session) error
}

// Session is the state shown to the author.
type Session[D any] struct {
	Key       string        `json:"key"`
	Draft     D             `json:"draft"`
	Wizard    wizard.State  `json:"wizard"`
	Steps     []wizard.Step `json:"steps"`
	SavedAt   time.Time     `json:"savedAt"`
	ScrollTop bool          `json:"scrollTop,omitempty"`
}

type Editor[D any, P any] struct {
	kind  Kind[D, P]
	store draft.Store
	saver *draft.Autosaver
	now   func() time.Time
}

func New[D any, P any](kind Kind[D, P], saver *draft.Autosaver) *Editor[D, P] {
	return &Editor[D, P]{kind: kind, store: saver.Store(), saver: saver, now: time.Now}
}

func entityKey(entityID string) string {
	if entityID == draft.NewEntity {
		return ""
	}
	return entityID
}

func (e *Editor[D, P]) authorize(s *auth.Session) error {
	if err := auth.RequireUser(s); err != nil {
		return err
	}
	if e.kind.Authorize != nil {
		return e.kind.Authorize(s)
	}
	return nil
}

// Open returns the current session for entityID ("new" or a record id). A missing
// snapshot starts a fresh draft, seeded from the stored record when editing.
func (e *Editor[D, P]) Open(ctx context.Context, s *auth.Session, entityID string) (*Session[D], error) {
	if err := e.authorize(s); err != nil {
		return nil, err
	}
	id := entityKey(entityID)
	key := e.kind.Key(s.UserID, id)

	if err := e.saver.Flush(ctx, key); err != nil {
		return nil, err
	}
	snap, err := draft.LoadSnapshot[D](ctx, e.store, key)
	if err == nil {
		ctrl := wizard.New(e.kind.Steps)
		ctrl.Restore(snap.Wizard)
		return &Session[D]{Key: key, Draft: snap.Draft, Wizard: ctrl.State(), Steps: e.kind.Steps, SavedAt: snap.SavedAt}, nil
	}
	if !errors.Is(err, draft.ErrNotFound) {
		return nil, err
	}

	var d D
	if id == "" {
		d = e.kind.New()
	} else {
		if d, err = e.kind.Seed(ctx, s, id); err != nil {
			return nil, err
		}
	}
	return &Session[D]{Key: key, Draft: d, Wizard: wizard.New(e.kind.Steps).State(), Steps: e.kind.Steps}, nil
}

// Patch applies an edit and queues an autosave.
func (e *Editor[D, P]) Patch(ctx context.Context, s *auth.Session, entityID string, p P) (*Session[D], error) {
	sess, err := e.Open(ctx, s, entityID)
	if err != nil {
		return nil, err
	}
	e.kind.Apply(sess.Draft, p)
	sess.SavedAt = e.now().UTC()
	data, err := encode(sess)
	if err != nil {
		return nil, err
	}
	e.saver.Schedule(sess.Key, data)
	return sess, nil
}

// Next validates the current step and advances. On a validation failure the
// session is returned unchanged together with the error.
func (e *Editor[D, P]) Next(ctx context.Context, s *auth.Session, entityID string) (*Session[D], error) {
	return e.transition(ctx, s, entityID, func(c *wizard.Controller, d D) error {
		return c.GoNext(func(step int) []apperrors.Violation { return e.kind.Validate(d, step) })
	})
}

func (e *Editor[D, P]) Back(ctx context.Context, s *auth.Session, entityID string) (*Session[D], error) {
	return e.transition(ctx, s, entityID, func(c *wizard.Controller, _ D) error {
		c.GoBack()
		return nil
	})
}

func (e *Editor[D, P]) GoTo(ctx context.Context, s *auth.Session, entityID string, step int) (*Session[D], error) {
	return e.transition(ctx, s, entityID, func(c *wizard.Controller, _ D) error {
		return c.GoToStep(step)
	})
}

func (e *Editor[D, P]) transition(ctx context.Context, s *auth.Session, entityID string, move func(*wizard.Controller, D) error) (*Session[D], error) {
	sess, err := e.Open(ctx, s, entityID)
	if err != nil {
		return nil, err
	}
	ctrl := wizard.New(e.kind.Steps)
	ctrl.Restore(sess.Wizard)
	ctrl.OnTransition(func(int) { sess.ScrollTop = true })

	if err := move(ctrl, sess.Draft); err != nil {
		return sess, err
	}
	sess.Wizard = ctrl.State()
	sess.SavedAt = e.now().UTC()
	if err := e.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Discard drops the draft and any queued autosave.
func (e *Editor[D, P]) Discard(ctx context.Context, s *auth.Session, entityID string) error {
	if err := e.authorize(s); err != nil {
		return err
	}
	key := e.kind.Key(s.UserID, entityKey(entityID))
	if err := e.saver.Cancel(ctx, key); err != nil {
		return err
	}
	return e.store.Delete(ctx, key)
}

// Submit hands the current draft to submit. Queued and running autosaves are
// settled first so a late write cannot resurrect the draft after submission.
func (e *Editor[D, P]) Submit(ctx context.Context, s *auth.Session, entityID string, submit func(ctx context.Context, d D) error) (*Session[D], error) {
	sess, err := e.Open(ctx, s, entityID)
	if err != nil {
		return nil, err
	}
	if err := e.saver.Cancel(ctx, sess.Key); err != nil {
		return sess, err
	}
	if err := submit(ctx, sess.Draft); err != nil {
		return sess, err
	}
	return sess, nil
}

func (e *Editor[D, P]) save(ctx context.Context, sess *Session[D]) error {
	data, err := encode(sess)
	if err != nil {
		return err
	}
	if err := e.saver.Cancel(ctx, sess.Key); err != nil {
		return err
	}
	err = e.store.Save(ctx, sess.Key, data)
	if err != nil {
		metrics.DraftSaves.WithLabelValues("error").Inc()
		return err
	}
	metrics.DraftSaves.WithLabelValues("success").Inc()
	return nil
}

func encode[D any](sess *Session[D]) ([]byte, error) {
	return draft.EncodeSnapshot(draft.Snapshot[D]{Draft: sess.Draft, Wizard: sess.Wizard, SavedAt: sess.SavedAt})
}
