// Command keygen writes an RSA signing key pair for access tokens.
//
// It produces private.pem (PKCS#8) and public.pem (PKIX) and prints the
// environment lines that point the server at them.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"socialapp/cmd/security/keys"
)

func main() {
	var (
		bits  = flag.Int("bits", 3072, "RSA modulus size (minimum 2048)")
		out   = flag.String("out", ".", "Output directory")
		kid   = flag.String("kid", keys.DefaultKeyID, "Key id advertised in the JWT header and JWKS")
		force = flag.Bool("force", false, "Overwrite existing files")
	)
	flag.Parse()

	if err := run(*bits, *out, *kid, *force); err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		os.Exit(1)
	}
}

func run(bits int, out, kid string, force bool) error {
	if bits < keys.MinRSABits {
		return fmt.Errorf("%w: %d bits, need %d", keys.ErrKeyTooWeak, bits, keys.MinRSABits)
	}
	pair, err := keys.Generate(kid, bits)
	if err != nil {
		return err
	}
	priv, err := pair.PrivatePEM()
	if err != nil {
		return err
	}
	pub, err := pair.PublicPEM()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(out, 0o700); err != nil {
		return err
	}
	privPath := filepath.Join(out, "private.pem")
	pubPath := filepath.Join(out, "public.pem")
	if err := writeFile(privPath, priv, 0o600, force); err != nil {
		return err
	}
	if err := writeFile(pubPath, pub, 0o644, force); err != nil {
		return err
	}

	fmt.Printf("SOCIAL_JWT_KEY_ID=%s\n", kid)
	fmt.Printf("SOCIAL_JWT_PRIVATE_KEY_FILE=%s\n", privPath)
	fmt.Printf("SOCIAL_JWT_PUBLIC_KEY_FILE=%s\n", pubPath)
	return nil
}

func writeFile(path string, data []byte, perm os.FileMode, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, perm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s exists (use -force to overwrite)", path)
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
