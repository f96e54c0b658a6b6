//go:build cgo

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	kuzu "github.com/kuzudb/go-kuzu"

	"github.com/dusk-indust/quadflow/internal/rdf"
)

// KuzuStore implements Store on KuzuDB. Each quad is one row of the Quad
// node table keyed by its structural key. It requires CGO because the
// go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection

	mu  sync.Mutex // serializes writes and guards seq
	seq int64
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given path. KuzuDB creates the leaf itself for new databases.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openPersistent(dbPath string) (Store, error) {
	return NewKuzuFileStore(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

const quadDDL = `CREATE NODE TABLE IF NOT EXISTS Quad(
	key STRING,
	s_kind STRING,
	s STRING,
	p STRING,
	o_kind STRING,
	o STRING,
	o_dt STRING,
	o_lang STRING,
	g STRING,
	seq INT64,
	PRIMARY KEY(key)
)`

const quadColumns = "q.s_kind, q.s, q.p, q.o_kind, q.o, q.o_dt, q.o_lang, q.g"

// InitSchema creates the Quad table if needed and resumes the insertion
// sequence from existing rows.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	res, err := s.conn.Query(quadDDL)
	if err != nil {
		return fmt.Errorf("kuzu: init schema: %w", err)
	}
	res.Close()

	rows, err := s.query("MATCH (q:Quad) RETURN max(q.seq)", nil)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(rows) > 0 && len(rows[0]) > 0 && rows[0][0] != nil {
		s.seq = int64(toInt(rows[0][0]))
	}
	return nil
}

// ---------- Write operations ----------

// Add inserts quads that are not already present.
func (s *KuzuStore) Add(ctx context.Context, quads ...rdf.Quad) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, q := range quads {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		key := q.Key()
		exists, err := s.exists(key)
		if err != nil {
			return added, err
		}
		if exists {
			continue
		}
		s.seq++
		err = s.exec(
			`CREATE (q:Quad {key: $key, s_kind: $sk, s: $s, p: $p, o_kind: $ok, o: $o,
				o_dt: $dt, o_lang: $lang, g: $g, seq: $seq})`,
			map[string]any{
				"key":  key,
				"sk":   string(q.Subject.Kind),
				"s":    q.Subject.Value,
				"p":    q.Predicate.Value,
				"ok":   string(q.Object.Kind),
				"o":    q.Object.Value,
				"dt":   q.Object.Datatype,
				"lang": q.Object.Lang,
				"g":    q.Graph,
				"seq":  s.seq,
			},
		)
		if err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// Remove deletes the given quads.
func (s *KuzuStore) Remove(ctx context.Context, quads ...rdf.Quad) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, q := range quads {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		key := q.Key()
		exists, err := s.exists(key)
		if err != nil {
			return removed, err
		}
		if !exists {
			continue
		}
		if err := s.exec("MATCH (q:Quad {key: $key}) DELETE q", map[string]any{"key": key}); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// ClearGraph deletes every quad of graph g.
func (s *KuzuStore) ClearGraph(_ context.Context, g string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	params := map[string]any{"g": g}
	rows, err := s.query("MATCH (q:Quad) WHERE q.g = $g RETURN count(q)", params)
	if err != nil {
		return 0, err
	}
	n := 0
	if len(rows) > 0 && len(rows[0]) > 0 {
		n = toInt(rows[0][0])
	}
	if n == 0 {
		return 0, nil
	}
	if err := s.exec("MATCH (q:Quad) WHERE q.g = $g DELETE q", params); err != nil {
		return 0, err
	}
	return n, nil
}

// Clear deletes every quad and resets the sequence.
func (s *KuzuStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.conn.Query("MATCH (q:Quad) DELETE q")
	if err != nil {
		return fmt.Errorf("kuzu: clear: %w", err)
	}
	res.Close()
	s.seq = 0
	return nil
}

// ---------- Read operations ----------

// Quads returns matching quads ordered by insertion sequence.
func (s *KuzuStore) Quads(_ context.Context, p Pattern) ([]rdf.Quad, error) {
	var (
		where  []string
		params = map[string]any{}
	)
	addTerm := func(kindCol, valCol, name string, t *rdf.Term) {
		if t == nil {
			return
		}
		where = append(where, fmt.Sprintf("q.%s = $%s_kind AND q.%s = $%s", kindCol, name, valCol, name))
		params[name+"_kind"] = string(t.Kind)
		params[name] = t.Value
	}
	addTerm("s_kind", "s", "s", p.Subject)
	if p.Predicate != nil {
		where = append(where, "q.p = $p")
		params["p"] = p.Predicate.Value
	}
	addTerm("o_kind", "o", "o", p.Object)
	if p.Object != nil {
		where = append(where, "q.o_dt = $o_dt AND q.o_lang = $o_lang")
		params["o_dt"] = p.Object.Datatype
		params["o_lang"] = p.Object.Lang
	}
	if p.Graph != nil {
		where = append(where, "q.g = $g")
		params["g"] = *p.Graph
	}

	cypher := "MATCH (q:Quad)"
	if len(where) > 0 {
		cypher += " WHERE " + strings.Join(where, " AND ")
	}
	cypher += " RETURN " + quadColumns + " ORDER BY q.seq"

	rows, err := s.query(cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]rdf.Quad, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToQuad(r))
	}
	return out, nil
}

// Count returns the number of stored quads.
func (s *KuzuStore) Count(_ context.Context) (int, error) {
	rows, err := s.query("MATCH (q:Quad) RETURN count(q)", nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// Stats returns totals per graph.
func (s *KuzuStore) Stats(_ context.Context) (*Stats, error) {
	st := &Stats{Graphs: make(map[string]int)}
	rows, err := s.query("MATCH (q:Quad) RETURN q.g, count(q)", nil)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		n := toInt(r[1])
		st.Graphs[toString(r[0])] = n
		st.Total += n
	}
	rows, err = s.query("MATCH (q:Quad) RETURN DISTINCT q.s_kind, q.s", nil)
	if err != nil {
		return nil, err
	}
	st.Subjects = len(rows)
	return st, nil
}

// ---------- Internal helpers ----------

func (s *KuzuStore) exists(key string) (bool, error) {
	rows, err := s.query("MATCH (q:Quad {key: $key}) RETURN count(q)", map[string]any{"key": key})
	if err != nil {
		return false, err
	}
	return len(rows) > 0 && len(rows[0]) > 0 && toInt(rows[0][0]) > 0, nil
}

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a Cypher statement and collects all result rows in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// rowToQuad converts an 8-column row in quadColumns order.
func rowToQuad(r []any) rdf.Quad {
	subject := rdf.Term{Kind: rdf.TermKind(toString(r[0])), Value: toString(r[1])}
	object := rdf.Term{
		Kind:     rdf.TermKind(toString(r[3])),
		Value:    toString(r[4]),
		Datatype: toString(r[5]),
		Lang:     toString(r[6]),
	}
	return rdf.NewQuad(subject, rdf.IRI(toString(r[2])), object, toString(r[7]))
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
