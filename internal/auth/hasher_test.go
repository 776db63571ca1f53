package auth

import "testing"

func TestPasswordHasher_HashAndVerify_Roundtrip(t *testing.T) {
	h := NewPasswordHasher(DefaultBcryptCost)

	hash, err := h.Hash("pw123")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if hash == "pw123" {
		t.Fatal("hash must not equal the plaintext password")
	}

	if !h.Verify("pw123", hash) {
		t.Error("Verify should return true for the original password")
	}
}

func TestPasswordHasher_Verify_WrongPassword(t *testing.T) {
	h := NewPasswordHasher(DefaultBcryptCost)

	hash, err := h.Hash("pw123")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	if h.Verify("pw124", hash) {
		t.Error("Verify should return false for a different password")
	}
}

// 不正なハッシュ形式に対してVerifyがpanicせずfalseを返すことを検証する。
func TestPasswordHasher_Verify_MalformedHash(t *testing.T) {
	h := NewPasswordHasher(DefaultBcryptCost)

	malformed := []string{
		"",
		"not-a-bcrypt-hash",
		"$2a$broken",
		"plaintext-password",
	}
	for _, hash := range malformed {
		if h.Verify("pw123", hash) {
			t.Errorf("Verify(%q) should return false for malformed hash", hash)
		}
	}
}

// 同じパスワードでもソルトにより毎回異なるハッシュになることを検証する。
func TestPasswordHasher_Hash_SaltedPerCall(t *testing.T) {
	h := NewPasswordHasher(DefaultBcryptCost)

	hash1, err := h.Hash("pw123")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	hash2, err := h.Hash("pw123")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	if hash1 == hash2 {
		t.Error("two hashes of the same password should differ (random salt)")
	}
	if !h.Verify("pw123", hash1) || !h.Verify("pw123", hash2) {
		t.Error("both hashes should verify against the original password")
	}
}

// 範囲外のコスト指定はデフォルトコストにフォールバックすることを検証する。
func TestNewPasswordHasher_InvalidCost_FallsBackToDefault(t *testing.T) {
	h := NewPasswordHasher(-1)
	if h.cost != DefaultBcryptCost {
		t.Errorf("cost = %d, want %d", h.cost, DefaultBcryptCost)
	}

	h = NewPasswordHasher(99)
	if h.cost != DefaultBcryptCost {
		t.Errorf("cost = %d, want %d", h.cost, DefaultBcryptCost)
	}
}
