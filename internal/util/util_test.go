package util

import (
	"bytes"
	"testing"
)

func TestAESStream(t *testing.T) {
	key, _ := RandomBytes(AESKeySize)
	iv, _ := NewAESIV()
	plainText := []byte("hello world")

	t.Run("EncryptDecrypt", func(t *testing.T) {
		cipherText, err := EncryptAESStream(plainText, key, iv)
		if err != nil {
			t.Fatalf("EncryptAESStream failed: %v", err)
		}
		if len(cipherText) != len(plainText) {
			t.Errorf("expected ciphertext length %d, got %d", len(plainText), len(cipherText))
		}
		if bytes.Equal(cipherText, plainText) {
			t.Error("ciphertext should differ from plaintext")
		}

		decrypted, err := DecryptAESStream(cipherText, key, iv)
		if err != nil {
			t.Fatalf("DecryptAESStream failed: %v", err)
		}
		if !bytes.Equal(plainText, decrypted) {
			t.Errorf("expected %s, got %s", plainText, decrypted)
		}
	})

	t.Run("WrongKeyYieldsGarbage", func(t *testing.T) {
		cipherText, _ := EncryptAESStream(plainText, key, iv)
		otherKey, _ := RandomBytes(AESKeySize)
		decrypted, err := DecryptAESStream(cipherText, otherKey, iv)
		if err != nil {
			t.Fatalf("DecryptAESStream failed: %v", err)
		}
		if bytes.Equal(plainText, decrypted) {
			t.Error("wrong key should not recover the plaintext")
		}
	})

	t.Run("SameIVSameKeystream", func(t *testing.T) {
		a, _ := EncryptAESStream([]byte("aaaa"), key, iv)
		b, _ := EncryptAESStream([]byte("aaaa"), key, iv)
		if !bytes.Equal(a, b) {
			t.Error("encryption under a fixed key and IV should be deterministic")
		}
	})

	t.Run("RejectBadKeySize", func(t *testing.T) {
		_, err := EncryptAESStream(plainText, []byte("too short"), iv)
		if err == nil {
			t.Error("expected error with wrong key size, got nil")
		}
	})

	t.Run("RejectBadIVSize", func(t *testing.T) {
		_, err := DecryptAESStream(plainText, key, []byte("short"))
		if err == nil {
			t.Error("expected error with wrong IV size, got nil")
		}
	})
}

func TestDeflateInflate(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		data := bytes.Repeat([]byte("license payload "), 64)
		compressed, err := Deflate(data)
		if err != nil {
			t.Fatalf("Deflate failed: %v", err)
		}
		if len(compressed) >= len(data) {
			t.Errorf("expected repetitive data to shrink, got %d >= %d", len(compressed), len(data))
		}
		out, err := Inflate(compressed, MaxInflatedSize)
		if err != nil {
			t.Fatalf("Inflate failed: %v", err)
		}
		if !bytes.Equal(data, out) {
			t.Error("round trip mismatch")
		}
	})

	t.Run("Empty", func(t *testing.T) {
		compressed, err := Deflate(nil)
		if err != nil {
			t.Fatalf("Deflate failed: %v", err)
		}
		out, err := Inflate(compressed, MaxInflatedSize)
		if err != nil {
			t.Fatalf("Inflate failed: %v", err)
		}
		if len(out) != 0 {
			t.Errorf("expected empty output, got %d bytes", len(out))
		}
	})

	t.Run("RejectGarbage", func(t *testing.T) {
		if _, err := Inflate([]byte("definitely not a zlib stream"), MaxInflatedSize); err == nil {
			t.Error("expected error for garbage input")
		}
	})

	t.Run("RejectCorruptTrailer", func(t *testing.T) {
		compressed, _ := Deflate([]byte("some data worth protecting"))
		compressed[len(compressed)-1] ^= 0xFF
		if _, err := Inflate(compressed, MaxInflatedSize); err == nil {
			t.Error("expected error for corrupt checksum trailer")
		}
	})

	t.Run("Limit", func(t *testing.T) {
		data := bytes.Repeat([]byte("a"), 64)
		compressed, _ := Deflate(data)
		if out, err := Inflate(compressed, 64); err != nil || len(out) != 64 {
			t.Errorf("Inflate at limit: len=%d err=%v", len(out), err)
		}
		if _, err := Inflate(compressed, 63); err == nil {
			t.Error("expected error above limit")
		}
	})
}

func TestArgon2id(t *testing.T) {
	params, err := Argon2idProfile(KDFProfileInteractive)
	if err != nil {
		t.Fatalf("Argon2idProfile failed: %v", err)
	}
	salt := []byte("random salt")

	key, err := DeriveArgon2idKey([]byte("correct horse battery staple"), salt, params)
	if err != nil {
		t.Fatalf("DeriveArgon2idKey failed: %v", err)
	}
	if len(key) != 32 {
		t.Errorf("expected key length 32, got %d", len(key))
	}

	again, _ := DeriveArgon2idKey([]byte("correct horse battery staple"), salt, params)
	if !bytes.Equal(key, again) {
		t.Error("argon2id should be deterministic")
	}

	other, _ := DeriveArgon2idKey([]byte("wrong passphrase"), salt, params)
	if bytes.Equal(key, other) {
		t.Error("different secrets should derive different keys")
	}

	params.KeyLen = 16
	if _, err := DeriveArgon2idKey([]byte("x"), salt, params); err == nil {
		t.Error("expected error for KeyLen != 32")
	}
}

func TestArgon2idProfile_AllProfiles(t *testing.T) {
	for _, name := range []string{KDFProfileInteractive, KDFProfileModerate, KDFProfileSensitive} {
		t.Run(name, func(t *testing.T) {
			p, err := Argon2idProfile(name)
			if err != nil {
				t.Fatalf("Argon2idProfile(%q) failed: %v", name, err)
			}
			if err := ValidateArgon2idParams(p); err != nil {
				t.Errorf("profile %q failed validation: %v", name, err)
			}
		})
	}

	if _, err := Argon2idProfile("nonexistent"); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

func TestValidateArgon2idParams(t *testing.T) {
	t.Run("TimeTooLow", func(t *testing.T) {
		p, _ := Argon2idProfile(KDFProfileModerate)
		p.Time = 0
		if err := ValidateArgon2idParams(p); err == nil {
			t.Error("expected error for Time=0")
		}
	})

	t.Run("MemoryTooLow", func(t *testing.T) {
		p, _ := Argon2idProfile(KDFProfileModerate)
		p.MemoryKiB = 1024
		if err := ValidateArgon2idParams(p); err == nil {
			t.Error("expected error for MemoryKiB=1024")
		}
	})

	t.Run("ParallelismTooLow", func(t *testing.T) {
		p, _ := Argon2idProfile(KDFProfileModerate)
		p.Parallelism = 0
		if err := ValidateArgon2idParams(p); err == nil {
			t.Error("expected error for Parallelism=0")
		}
	})
}

func TestBytesUtil(t *testing.T) {
	src := []byte{1, 2, 3}
	dst := CopyBytes(src)
	dst[0] = 9
	if src[0] != 1 {
		t.Error("CopyBytes should not alias its input")
	}
	if CopyBytes(nil) != nil {
		t.Error("CopyBytes(nil) should stay nil")
	}

	WipeBytes(dst)
	for _, b := range dst {
		if b != 0 {
			t.Fatal("WipeBytes left non-zero bytes")
		}
	}
}

func TestNormalize(t *testing.T) {
	// U+00E9 composed vs. e + U+0301 combining accent.
	if Normalize("caf\u00e9") != Normalize("cafe\u0301") {
		t.Error("NFKD should unify composed and decomposed forms")
	}
	if Normalize("plain ascii") != "plain ascii" {
		t.Error("ASCII must pass through unchanged")
	}
}
