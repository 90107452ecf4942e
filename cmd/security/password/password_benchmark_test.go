package password

import "testing"

func BenchmarkHash(b *testing.B) {
	for _, algo := range []Algorithm{AlgorithmArgon2id, AlgorithmBcrypt} {
		b.Run(string(algo), func(b *testing.B) {
			cfg := DefaultConfig()
			cfg.Algorithm = algo
			for i := 0; i < b.N; i++ {
				if _, err := cfg.Hash("this is a strong password 123!"); err != nil {
					b.Fatalf("Hash error: %v", err)
				}
			}
		})
	}
}

func BenchmarkVerify_DefaultConfig(b *testing.B) {
	cfg := DefaultConfig()
	pw := "this is a strong password 123!"
	h, err := cfg.Hash(pw)
	if err != nil {
		b.Fatalf("Hash error: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ok, err := cfg.Verify(h, pw)
		if err != nil || !ok {
			b.Fatalf("Verify failed: ok=%v err=%v", ok, err)
		}
	}
}
