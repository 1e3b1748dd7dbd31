package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/openpredict/updown/core"
)

// registerPrefix records a ledger-key prefix into ledgerPrefixes so that
// Checksum() and the list queries always cover it. All prefix constants must
// be declared via this function.
func registerPrefix(p string) string {
	ledgerPrefixes = append(ledgerPrefixes, p)
	return p
}

// ledgerPrefixes is populated automatically by registerPrefix() below.
var ledgerPrefixes []string

var (
	prefixMarket     = registerPrefix("market:")
	prefixRound      = registerPrefix("round:")
	prefixBet        = registerPrefix("bet:")
	prefixRoundDenom = registerPrefix("rdb:")
	prefixPool       = registerPrefix("pool:")
)

// keyMarketConfig is the singleton market configuration key.
var keyMarketConfig = prefixMarket + "config"

func roundKey(name string) string              { return prefixRound + name }
func betKey(round, bettor string) string       { return prefixBet + round + ":" + bettor }
func roundDenomKey(round, denom string) string { return prefixRoundDenom + round + ":" + denom }
func poolKey(denom string) string              { return prefixPool + denom }

type ledgerSnapshot struct {
	dirty   map[string][]byte
	deleted map[string]bool
}

// LedgerDB implements core.State on top of a DB with an in-memory write
// buffer, snapshot/rollback, and a deterministic ledger checksum. All
// mutations stay in the buffer until Commit, so a failed action reverts
// without touching the underlying store.
type LedgerDB struct {
	db        DB
	dirty     map[string][]byte
	deleted   map[string]bool
	snapshots []ledgerSnapshot
}

// NewLedgerDB creates a LedgerDB backed by db.
func NewLedgerDB(db DB) *LedgerDB {
	return &LedgerDB{
		db:      db,
		dirty:   make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

// ---- internal helpers ----

func (l *LedgerDB) get(key string) ([]byte, error) {
	if l.deleted[key] {
		return nil, core.ErrNotFound
	}
	if v, ok := l.dirty[key]; ok {
		return v, nil
	}
	return l.db.Get([]byte(key))
}

func (l *LedgerDB) set(key string, val []byte) {
	delete(l.deleted, key)
	l.dirty[key] = val
}

func (l *LedgerDB) del(key string) {
	delete(l.dirty, key)
	l.deleted[key] = true
}

func (l *LedgerDB) getJSON(key string, out any) error {
	data, err := l.get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (l *LedgerDB) setJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	l.set(key, data)
	return nil
}

// scanPrefix returns the merged view (persisted entries overlaid with the
// write buffer, minus deletions) of all keys under prefix, in key order.
func (l *LedgerDB) scanPrefix(prefix string) ([]string, map[string][]byte, error) {
	merged := make(map[string][]byte)
	it := l.db.NewIterator([]byte(prefix))
	for it.Next() {
		k := string(it.Key())
		v := make([]byte, len(it.Value()))
		copy(v, it.Value())
		merged[k] = v
	}
	err := it.Error()
	it.Release()
	if err != nil {
		return nil, nil, err
	}
	for k, v := range l.dirty {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			merged[k] = v
		}
	}
	for k := range l.deleted {
		delete(merged, k)
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, merged, nil
}

// ---- Market config ----

func (l *LedgerDB) GetMarketConfig() (*core.MarketConfig, error) {
	var cfg core.MarketConfig
	if err := l.getJSON(keyMarketConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *LedgerDB) SetMarketConfig(cfg *core.MarketConfig) error {
	return l.setJSON(keyMarketConfig, cfg)
}

// ---- Rounds ----

func (l *LedgerDB) GetRound(name string) (*core.Round, error) {
	var r core.Round
	if err := l.getJSON(roundKey(name), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (l *LedgerDB) SetRound(r *core.Round) error {
	return l.setJSON(roundKey(r.Name), r)
}

func (l *LedgerDB) ListRounds() ([]*core.Round, error) {
	keys, merged, err := l.scanPrefix(prefixRound)
	if err != nil {
		return nil, err
	}
	rounds := make([]*core.Round, 0, len(keys))
	for _, k := range keys {
		var r core.Round
		if err := json.Unmarshal(merged[k], &r); err != nil {
			return nil, fmt.Errorf("decode round %q: %w", k, err)
		}
		rounds = append(rounds, &r)
	}
	return rounds, nil
}

// ---- Bets ----

func (l *LedgerDB) GetBet(roundName, bettor string) (*core.Bet, error) {
	var b core.Bet
	if err := l.getJSON(betKey(roundName, bettor), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (l *LedgerDB) SetBet(b *core.Bet) error {
	return l.setJSON(betKey(b.RoundName, b.Bettor), b)
}

func (l *LedgerDB) DeleteBet(roundName, bettor string) error {
	l.del(betKey(roundName, bettor))
	return nil
}

// ---- Round denom totals ----

func (l *LedgerDB) GetRoundDenomBet(roundName, denom string) (*core.RoundDenomBet, error) {
	var rdb core.RoundDenomBet
	if err := l.getJSON(roundDenomKey(roundName, denom), &rdb); err != nil {
		return nil, err
	}
	return &rdb, nil
}

func (l *LedgerDB) SetRoundDenomBet(rdb *core.RoundDenomBet) error {
	return l.setJSON(roundDenomKey(rdb.RoundName, rdb.Denom), rdb)
}

// ---- Treasury pools ----

func (l *LedgerDB) GetTreasuryPool(denom string) (*core.TreasuryPool, error) {
	var p core.TreasuryPool
	if err := l.getJSON(poolKey(denom), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (l *LedgerDB) SetTreasuryPool(p *core.TreasuryPool) error {
	return l.setJSON(poolKey(p.Denom), p)
}

func (l *LedgerDB) ListTreasuryPools() ([]*core.TreasuryPool, error) {
	keys, merged, err := l.scanPrefix(prefixPool)
	if err != nil {
		return nil, err
	}
	pools := make([]*core.TreasuryPool, 0, len(keys))
	for _, k := range keys {
		var p core.TreasuryPool
		if err := json.Unmarshal(merged[k], &p); err != nil {
			return nil, fmt.Errorf("decode treasury pool %q: %w", k, err)
		}
		pools = append(pools, &p)
	}
	return pools, nil
}

// ---- Snapshot / Rollback / Commit ----

// Snapshot saves the current write buffer and returns a snapshot ID.
func (l *LedgerDB) Snapshot() (int, error) {
	snap := ledgerSnapshot{
		dirty:   make(map[string][]byte, len(l.dirty)),
		deleted: make(map[string]bool, len(l.deleted)),
	}
	for k, v := range l.dirty {
		cp := make([]byte, len(v))
		copy(cp, v)
		snap.dirty[k] = cp
	}
	for k, v := range l.deleted {
		snap.deleted[k] = v
	}
	l.snapshots = append(l.snapshots, snap)
	return len(l.snapshots) - 1, nil
}

// RevertToSnapshot restores the write buffer to a previously saved snapshot.
// The snapshot maps are deep-copied so subsequent writes cannot corrupt them.
func (l *LedgerDB) RevertToSnapshot(id int) error {
	if id < 0 || id >= len(l.snapshots) {
		return fmt.Errorf("invalid snapshot id %d", id)
	}
	snap := l.snapshots[id]

	dirty := make(map[string][]byte, len(snap.dirty))
	for k, v := range snap.dirty {
		cp := make([]byte, len(v))
		copy(cp, v)
		dirty[k] = cp
	}
	deleted := make(map[string]bool, len(snap.deleted))
	for k, v := range snap.deleted {
		deleted[k] = v
	}

	l.dirty = dirty
	l.deleted = deleted
	l.snapshots = l.snapshots[:id]
	return nil
}

// Checksum returns the deterministic blake2b hash of the complete ledger
// view. It merges all persisted entries (scanned by the known prefixes) with
// the current write buffer, then hashes the sorted key-value pairs using
// length-prefix encoding. It does not flush or modify state.
func (l *LedgerDB) Checksum() string {
	merged := make(map[string][]byte)
	for _, prefix := range ledgerPrefixes {
		it := l.db.NewIterator([]byte(prefix))
		for it.Next() {
			k := string(it.Key())
			v := make([]byte, len(it.Value()))
			copy(v, it.Value())
			merged[k] = v
		}
		it.Release()
	}
	for k, v := range l.dirty {
		merged[k] = v
	}
	for k := range l.deleted {
		delete(merged, k)
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	var lenBuf [4]byte
	for _, k := range keys {
		v := merged[k]
		kb := []byte(k)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(kb)))
		buf.Write(lenBuf[:])
		buf.Write(kb)
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(v)))
		buf.Write(lenBuf[:])
		buf.Write(v)
	}
	sum := blake2b.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// Commit atomically flushes the write buffer to the underlying DB via a
// write batch and then clears it.
func (l *LedgerDB) Commit() error {
	batch := l.db.NewBatch()
	for k, v := range l.dirty {
		batch.Set([]byte(k), v)
	}
	for k := range l.deleted {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return err
	}
	l.dirty = make(map[string][]byte)
	l.deleted = make(map[string]bool)
	l.snapshots = nil
	return nil
}
