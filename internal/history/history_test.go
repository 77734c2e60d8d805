package history

import (
	"reflect"
	"strings"
	"testing"
)

func TestNewIDShape(t *testing.T) {
	id := NewID()
	if !strings.HasPrefix(id, "run-") || len(id) != len("run-")+32 {
		t.Fatalf("id = %q", id)
	}
	if id == NewID() {
		t.Fatal("ids should not repeat")
	}
}

func TestFloatEncoding(t *testing.T) {
	times := []float64{0.01, 0.06, 1.5}
	encoded := encodeFloats(times)
	if encoded != "0.01,0.06,1.5" {
		t.Fatalf("encoded = %q", encoded)
	}
	if got := decodeFloats(encoded); !reflect.DeepEqual(got, times) {
		t.Fatalf("decoded = %v, want %v", got, times)
	}
	if decodeFloats("") != nil {
		t.Fatal("empty string should decode to nil")
	}
}

func TestNilRepository(t *testing.T) {
	if repo := NewPostgresRepository(nil); repo != nil {
		t.Fatal("nil db should yield nil repo")
	}
}
