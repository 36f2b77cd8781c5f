package engine

import (
	"math"
	"testing"

	"github.com/viant/cardindex/vector"
)

func TestRegisterVectorFunctionsAndUse(t *testing.T) {
	// Register before the first connection so the functions are visible.
	if err := RegisterVectorFunctions(nil); err != nil {
		t.Fatalf("RegisterVectorFunctions failed: %v", err)
	}
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer db.Close()

	if err := RegisterVectorFunctions(db); err != nil {
		t.Fatalf("RegisterVectorFunctions (repeat) failed: %v", err)
	}

	encode := func(v ...float32) []byte {
		b, err := vector.EncodeEmbedding(v)
		if err != nil {
			t.Fatalf("EncodeEmbedding(%v) failed: %v", v, err)
		}
		return b
	}
	a := encode(1, 0)
	b := encode(0, 1)
	c := encode(0.8, 0.6)

	var sim float64
	if err := db.QueryRow(`SELECT vec_cosine(?, ?)`, a, b).Scan(&sim); err != nil {
		t.Fatalf("vec_cosine(a,b) query failed: %v", err)
	}
	if sim != 0 {
		t.Fatalf("vec_cosine(a,b) = %v, want 0", sim)
	}

	if err := db.QueryRow(`SELECT vec_cosine(?, ?)`, a, c).Scan(&sim); err != nil {
		t.Fatalf("vec_cosine(a,c) query failed: %v", err)
	}
	if math.Abs(sim-0.8) > 1e-6 {
		t.Fatalf("vec_cosine(a,c) = %v, want 0.8", sim)
	}

	var null interface{}
	if err := db.QueryRow(`SELECT vec_cosine(NULL, ?)`, a).Scan(&null); err != nil {
		t.Fatalf("vec_cosine(NULL,a) query failed: %v", err)
	}
	if null != nil {
		t.Fatalf("vec_cosine(NULL,a) = %v, want NULL", null)
	}

	if err := db.QueryRow(`SELECT vec_cosine(?, ?)`, a, encode(1, 0, 0)).Scan(&sim); err == nil {
		t.Fatalf("vec_cosine with mismatched dims should fail")
	}
}
