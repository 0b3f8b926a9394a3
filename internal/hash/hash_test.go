package hash

import "testing"

func TestSHA256Hasher_HashBytes(t *testing.T) {
	hasher := NewSHA256Hasher()

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{
			name: "empty content",
			data: []byte{},
			want: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name: "known content",
			data: []byte("hello"),
			want: "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hasher.HashBytes(tt.data)
			if got != tt.want {
				t.Errorf("HashBytes() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("identical content hashes identically", func(t *testing.T) {
		a := hasher.HashBytes([]byte("same bytes"))
		b := hasher.HashBytes([]byte("same bytes"))
		if a != b {
			t.Errorf("identical content produced different hashes: %q vs %q", a, b)
		}
	})

	t.Run("different content hashes differently", func(t *testing.T) {
		a := hasher.HashBytes([]byte("one"))
		b := hasher.HashBytes([]byte("two"))
		if a == b {
			t.Error("different content produced identical hashes")
		}
	})
}

func TestFakeHasher_HashBytes(t *testing.T) {
	hasher := NewFakeHasher()

	t.Run("returns default hash when not set", func(t *testing.T) {
		if got := hasher.HashBytes([]byte("anything")); got != "fakehash" {
			t.Errorf("HashBytes() = %q, want %q", got, "fakehash")
		}
	})

	t.Run("returns predetermined hash", func(t *testing.T) {
		hasher.SetHash("content", "abc123")
		if got := hasher.HashBytes([]byte("content")); got != "abc123" {
			t.Errorf("HashBytes() = %q, want %q", got, "abc123")
		}
	})
}
