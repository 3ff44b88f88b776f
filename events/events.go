// Package events fans out row-level change notifications to live subscribers such
// as the admin console's change stream.
package events

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

type Change struct {
	Table string `json:"table"`
	Op    Op     `json:"op"`
	ID    string `json:"id,omitempty"`
}

// Hub delivers each published change to every subscriber. A subscriber that is not
// keeping up misses changes instead of blocking the writer.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Change]struct{}
	buffer int
}

func NewHub() *Hub {
	return &Hub{subs: map[chan Change]struct{}{}, buffer: 16}
}

// Subscribe returns a channel of changes and a function that releases it.
func (h *Hub) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(c Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Watch registers gorm callbacks that publish a Change after every successful
// create, update and delete on the given tables.
func Watch(db *gorm.DB, hub *Hub, log *zap.Logger, tables ...string) error {
	watched := map[string]bool{}
	for _, t := range tables {
		watched[t] = true
	}

	publish := func(op Op) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			if tx.Error != nil || tx.Statement.Schema == nil {
				return
			}
			table := tx.Statement.Schema.Table
			if !watched[table] {
				return
			}
			ids := primaryKeys(tx)
			if len(ids) == 0 {
				hub.Publish(Change{Table: table, Op: op})
				return
			}
			for _, id := range ids {
				hub.Publish(Change{Table: table, Op: op, ID: id})
			}
			log.Debug("change published", zap.String("table", table), zap.String("op", string(op)), zap.Strings("ids", ids))
		}
	}

	cb := db.Callback()
	if err := cb.Create().After("gorm:create").Register("events:create", publish(OpCreate)); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("events:update", publish(OpUpdate)); err != nil {
		return err
	}
	return cb.Delete().After("gorm:delete").Register("events:delete", publish(OpDelete))
}

func primaryKeys(tx *gorm.DB) []string {
	field := tx.Statement.Schema.PrioritizedPrimaryField
	if field == nil {
		return nil
	}
	rv := tx.Statement.ReflectValue
	ctx := tx.Statement.Context

	var ids []string
	collect := func(v reflect.Value) {
		for v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return
		}
		if id, zero := field.ValueOf(ctx, v); !zero {
			ids = append(ids, fmt.Sprint(id))
		}
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			collect(rv.Index(i))
		}
	default:
		collect(rv)
	}
	return ids
}
