package transaction

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/gopenpgp/v2/crypto"

	"github.com/pacwrap/pacwrap/pkg/types"
)

func writeSignedPackage(t *testing.T, dir, name string, data []byte, key *crypto.Key) string {
	t.Helper()

	pkgPath := filepath.Join(dir, name)
	if err := os.WriteFile(pkgPath, data, 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", pkgPath, err)
	}

	keyRing, err := crypto.NewKeyRing(key)
	if err != nil {
		t.Fatalf("NewKeyRing() error = %v", err)
	}
	sig, err := keyRing.SignDetached(crypto.NewPlainMessage(data))
	if err != nil {
		t.Fatalf("SignDetached() error = %v", err)
	}
	armored, err := sig.GetArmored()
	if err != nil {
		t.Fatalf("GetArmored() error = %v", err)
	}
	if err := os.WriteFile(pkgPath+".sig", []byte(armored), 0o644); err != nil {
		t.Fatalf("WriteFile(sig) error = %v", err)
	}
	return pkgPath
}

func writeTrustedKeyring(t *testing.T, gnupgPath string, key *crypto.Key) {
	t.Helper()
	if err := os.MkdirAll(gnupgPath, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	pub, err := key.ToPublic()
	if err != nil {
		t.Fatalf("ToPublic() error = %v", err)
	}
	armored, err := pub.Armor()
	if err != nil {
		t.Fatalf("Armor() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(gnupgPath, "trusted.asc"), []byte(armored), 0o644); err != nil {
		t.Fatalf("WriteFile(keyring) error = %v", err)
	}
}

func TestVerifyLocalPackagesAcceptsValidSignature(t *testing.T) {
	key, err := crypto.GenerateKey("pacwrap test", "test@pacwrap.local", "rsa", 2048)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	dir := t.TempDir()
	pkgPath := writeSignedPackage(t, dir, "zsh-5.9-1-x86_64.pkg.tar.zst", []byte("package contents"), key)

	gnupgPath := filepath.Join(dir, "gnupg")
	writeTrustedKeyring(t, gnupgPath, key)

	plan := types.TransactionPlan{Install: []types.PackageRef{{LocalFile: pkgPath}}}
	if err := verifyLocalPackages(plan, gnupgPath); err != nil {
		t.Fatalf("verifyLocalPackages() error = %v, want nil", err)
	}
}

func TestVerifyLocalPackagesRejectsUntrustedSigner(t *testing.T) {
	signer, err := crypto.GenerateKey("signer", "signer@pacwrap.local", "rsa", 2048)
	if err != nil {
		t.Fatalf("GenerateKey(signer) error = %v", err)
	}
	trusted, err := crypto.GenerateKey("trusted", "trusted@pacwrap.local", "rsa", 2048)
	if err != nil {
		t.Fatalf("GenerateKey(trusted) error = %v", err)
	}

	dir := t.TempDir()
	pkgPath := writeSignedPackage(t, dir, "evil-1-1-x86_64.pkg.tar.zst", []byte("package contents"), signer)

	gnupgPath := filepath.Join(dir, "gnupg")
	writeTrustedKeyring(t, gnupgPath, trusted)

	plan := types.TransactionPlan{Install: []types.PackageRef{{LocalFile: pkgPath}}}
	if err := verifyLocalPackages(plan, gnupgPath); err == nil {
		t.Fatal("verifyLocalPackages() = nil, want an error for an untrusted signer")
	}
}

func TestVerifyLocalPackagesRequiresSignatureFile(t *testing.T) {
	key, err := crypto.GenerateKey("pacwrap test", "test@pacwrap.local", "rsa", 2048)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	dir := t.TempDir()
	pkgPath := filepath.Join(dir, "unsigned-1-1-x86_64.pkg.tar.zst")
	if err := os.WriteFile(pkgPath, []byte("package contents"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	gnupgPath := filepath.Join(dir, "gnupg")
	writeTrustedKeyring(t, gnupgPath, key)

	plan := types.TransactionPlan{Install: []types.PackageRef{{LocalFile: pkgPath}}}
	if err := verifyLocalPackages(plan, gnupgPath); err == nil {
		t.Fatal("verifyLocalPackages() = nil, want an error when no .sig file exists")
	}
}

func TestVerifyLocalPackagesSkipsRepositoryPackages(t *testing.T) {
	plan := types.TransactionPlan{Install: []types.PackageRef{{Name: "zsh", Repo: "core"}}}
	if err := verifyLocalPackages(plan, "/nonexistent/gnupg"); err != nil {
		t.Fatalf("verifyLocalPackages() error = %v, want nil when no local files are in the plan", err)
	}
}
