package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/streamgate-go/internal/core/domain"
	"github.com/yndnr/streamgate-go/internal/core/service"
)

var _ service.TokenStore = (*BadgerStore)(nil)

// Key layout:
//
//	t/h/<hash>                          -> token JSON
//	t/i/<id>                            -> hash
//	t/o/<owner>\x00<created_at BE8><id> -> hash
var (
	prefixHash  = []byte("t/h/")
	prefixID    = []byte("t/i/")
	prefixOwner = []byte("t/o/")
)

// errNotClaimed aborts a claim transaction without writing.
var errNotClaimed = errors.New("not claimed")

func hashKey(hash string) []byte { return append(append([]byte{}, prefixHash...), hash...) }
func idKey(id string) []byte     { return append(append([]byte{}, prefixID...), id...) }

func ownerPrefix(owner string) []byte {
	k := append(append([]byte{}, prefixOwner...), owner...)
	return append(k, 0)
}

func ownerTimeKey(owner string, ms int64) []byte {
	return binary.BigEndian.AppendUint64(ownerPrefix(owner), uint64(ms))
}

func ownerKey(tok *domain.StreamToken) []byte {
	return append(ownerTimeKey(tok.OwnerID, tok.CreatedAt), tok.ID...)
}

// BadgerStore is a durable TokenStore on Badger v3.
type BadgerStore struct {
	db     *badger.DB
	cfg    Config
	logger *slog.Logger

	lastGCTime atomic.Int64 // Unix milliseconds
	gcRuns     atomic.Uint64

	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge
	metricsGCRuns       prometheus.CounterFunc

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// OpenBadger opens or creates a badger store in cfg.DataDir.
func OpenBadger(cfg Config, logger *slog.Logger) (*BadgerStore, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("badger: data_dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		cfg.GCThreshold = DefaultConfig().GCThreshold
	}
	key, err := DecodeEncryptionKey(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("badger: %w", err)
	}

	opts := badger.DefaultOptions(cfg.DataDir)
	opts.Logger = &badgerLogger{logger: logger.With("component", "badger")}
	opts.SyncWrites = cfg.SyncWrites
	// Claim relies on conflict detection for its compare-and-set.
	opts.DetectConflicts = true
	if cfg.CacheSize > 0 {
		opts.BlockCacheSize = cfg.CacheSize
	}
	if key != nil {
		opts.EncryptionKey = key
		opts.EncryptionKeyRotationDuration = 10 * 24 * time.Hour
		opts.IndexCacheSize = 16 << 20
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	if cfg.GCInterval > 0 {
		s.wg.Add(1)
		go s.gcLoop(cfg.GCInterval)
	}

	logger.Info("badger token store opened",
		"dir", cfg.DataDir,
		"encrypted", key != nil,
		"gc_interval", cfg.GCInterval)

	return s, nil
}

// Create inserts a token and its indexes in one transaction.
func (s *BadgerStore) Create(_ context.Context, tok *domain.StreamToken) error {
	if err := tok.Validate(); err != nil {
		return err
	}
	val, err := json.Marshal(tok)
	if err != nil {
		return domain.ErrStorage.WithCause(err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, k := range [][]byte{hashKey(tok.SecretHash), idKey(tok.ID)} {
			_, err := txn.Get(k)
			if err == nil {
				return domain.ErrTokenConflict
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		if err := txn.Set(hashKey(tok.SecretHash), val); err != nil {
			return err
		}
		if err := txn.Set(idKey(tok.ID), []byte(tok.SecretHash)); err != nil {
			return err
		}
		return txn.Set(ownerKey(tok), []byte(tok.SecretHash))
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrTokenConflict), errors.Is(err, badger.ErrConflict):
		return domain.ErrTokenConflict
	default:
		return domain.ErrStorage.WithCause(err)
	}
}

// Claim reads, checks and rewrites the record in one transaction. A
// concurrent claim on the same key fails the commit with ErrConflict,
// which counts as a lost race.
func (s *BadgerStore) Claim(_ context.Context, hash string, at time.Time) (*domain.StreamToken, error) {
	var claimed *domain.StreamToken
	err := s.db.Update(func(txn *badger.Txn) error {
		tok, err := getToken(txn, hash)
		if err != nil {
			return err
		}
		if tok.Used {
			return errNotClaimed
		}
		tok.MarkClaimed(at)
		val, err := json.Marshal(tok)
		if err != nil {
			return err
		}
		if err := txn.Set(hashKey(hash), val); err != nil {
			return err
		}
		claimed = tok
		return nil
	})
	switch {
	case err == nil:
		return claimed, nil
	case errors.Is(err, errNotClaimed), errors.Is(err, badger.ErrKeyNotFound), errors.Is(err, badger.ErrConflict):
		return nil, domain.ErrTokenInvalid
	default:
		return nil, domain.ErrStorage.WithCause(err)
	}
}

// Get returns a token by id.
func (s *BadgerStore) Get(_ context.Context, id string) (*domain.StreamToken, error) {
	var tok *domain.StreamToken
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(id))
		if err != nil {
			return err
		}
		hash, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		tok, err = getToken(txn, string(hash))
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, domain.ErrStorage.WithCause(err)
	}
	return tok, nil
}

// ListByOwner walks the owner index backwards from the newest entry.
func (s *BadgerStore) ListByOwner(_ context.Context, owner string, limit int) ([]*domain.StreamToken, error) {
	var out []*domain.StreamToken
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := ownerPrefix(owner)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(append(append([]byte{}, prefix...), 0xff)); it.ValidForPrefix(prefix); it.Next() {
			hash, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			tok, err := getToken(txn, string(hash))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, tok)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, domain.ErrStorage.WithCause(err)
	}
	return out, nil
}

// CountIssuedSince counts owner index keys from since onwards without
// reading values.
func (s *BadgerStore) CountIssuedSince(_ context.Context, owner string, since time.Time) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := ownerPrefix(owner)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(ownerTimeKey(owner, since.UnixMilli())); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, domain.ErrStorage.WithCause(err)
	}
	return n, nil
}

// CountActive loads the owner's records and counts the active ones.
func (s *BadgerStore) CountActive(_ context.Context, owner string, now time.Time) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := ownerPrefix(owner)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			hash, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			tok, err := getToken(txn, string(hash))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if tok.IsActive(now) {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return 0, domain.ErrStorage.WithCause(err)
	}
	return n, nil
}

// Purge scans all records and deletes the spent ones in a write batch.
func (s *BadgerStore) Purge(_ context.Context, createdBefore, now time.Time) (int, error) {
	cutoff := createdBefore.UnixMilli()
	var victims []*domain.StreamToken

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefixHash
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var tok domain.StreamToken
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &tok)
			}); err != nil {
				return err
			}
			if tok.CreatedAt < cutoff && !tok.IsActive(now) {
				victims = append(victims, &tok)
			}
		}
		return nil
	})
	if err != nil {
		return 0, domain.ErrStorage.WithCause(err)
	}
	if len(victims) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, tok := range victims {
		for _, k := range [][]byte{hashKey(tok.SecretHash), idKey(tok.ID), ownerKey(tok)} {
			if err := wb.Delete(k); err != nil {
				return 0, domain.ErrStorage.WithCause(err)
			}
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, domain.ErrStorage.WithCause(err)
	}
	return len(victims), nil
}

// Ping reports whether the database is open.
func (s *BadgerStore) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return domain.ErrStorage.WithDetails("badger closed")
	}
	return nil
}

// GC runs value log GC until badger reports nothing left to rewrite.
func (s *BadgerStore) GC() error {
	start := time.Now()
	runs := 0
	for {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return fmt.Errorf("gc: %w", err)
		}
		runs++
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	s.gcRuns.Add(uint64(runs))

	s.logger.Debug("badger gc completed", "rewrites", runs, "elapsed", time.Since(start))
	return nil
}

// Close stops background loops and closes the database.
func (s *BadgerStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		if cerr := s.db.Close(); cerr != nil {
			err = fmt.Errorf("close db: %w", cerr)
		}
		s.logger.Info("badger token store closed")
	})
	return err
}

// RegisterMetrics registers size and GC metrics and starts the updater.
func (s *BadgerStore) RegisterMetrics(reg prometheus.Registerer) error {
	s.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "streamgate",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})
	s.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "streamgate",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})
	s.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "streamgate",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	})
	s.metricsGCRuns = prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "streamgate",
		Subsystem: "badger",
		Name:      "gc_rewrites_total",
		Help:      "Value log files rewritten by Badger GC",
	}, func() float64 { return float64(s.gcRuns.Load()) })

	for _, c := range []prometheus.Collector{
		s.metricsLSMSize, s.metricsValueLogSize, s.metricsLastGCTime, s.metricsGCRuns,
	} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("badger metrics: %w", err)
		}
	}

	s.updateMetrics()
	s.wg.Add(1)
	go s.metricsLoop()
	return nil
}

func (s *BadgerStore) updateMetrics() {
	lsm, vlog := s.db.Size()
	s.metricsLSMSize.Set(float64(lsm))
	s.metricsValueLogSize.Set(float64(vlog))
	if t := s.lastGCTime.Load(); t > 0 {
		s.metricsLastGCTime.Set(float64(t) / 1000.0)
	}
}

func (s *BadgerStore) metricsLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateMetrics()
		case <-s.stopCh:
			return
		}
	}
}

func (s *BadgerStore) gcLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.GC(); err != nil {
				s.logger.Error("badger gc failed", "error", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

func getToken(txn *badger.Txn, hash string) (*domain.StreamToken, error) {
	item, err := txn.Get(hashKey(hash))
	if err != nil {
		return nil, err
	}
	var tok domain.StreamToken
	if err := item.Value(func(v []byte) error {
		return json.Unmarshal(v, &tok)
	}); err != nil {
		return nil, err
	}
	return &tok, nil
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
