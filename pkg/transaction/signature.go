package transaction

import (
	"os"
	"path/filepath"

	"github.com/ProtonMail/gopenpgp/v2/crypto"

	"github.com/pacwrap/pacwrap/pkg/perror"
	"github.com/pacwrap/pacwrap/pkg/types"
)

// verifyLocalPackages checks every locally-supplied package file named in
// a plan against a detached ".sig" signature and the container's GnuPG
// keyring, since these bypass the sync database's own signature
// checking. Packages resolved from a repository are left to ALPM's own
// SigLevel enforcement.
func verifyLocalPackages(plan types.TransactionPlan, gnupgPath string) error {
	var localFiles []string
	for _, ref := range plan.Install {
		if ref.LocalFile != "" {
			localFiles = append(localFiles, ref.LocalFile)
		}
	}
	if len(localFiles) == 0 {
		return nil
	}

	keyRing, err := loadKeyRing(gnupgPath)
	if err != nil {
		return perror.Wrap(perror.KindInvalidSignature, err, "load pacman keyring", gnupgPath)
	}

	for _, path := range localFiles {
		if err := verifyDetached(keyRing, path); err != nil {
			return perror.Wrap(perror.KindInvalidSignature, err, "verify package signature", path)
		}
	}
	return nil
}

func verifyDetached(keyRing *crypto.KeyRing, pkgPath string) error {
	sigPath := pkgPath + ".sig"
	sigData, err := os.ReadFile(sigPath)
	if err != nil {
		return err
	}
	pkgData, err := os.ReadFile(pkgPath)
	if err != nil {
		return err
	}

	signature, err := crypto.NewPGPSignatureFromArmored(string(sigData))
	if err != nil {
		signature = crypto.NewPGPSignature(sigData)
	}
	message := crypto.NewPlainMessage(pkgData)
	return keyRing.VerifyDetached(message, signature, 0)
}

// loadKeyRing builds a keyring from every armored public key under a
// container's GnuPG directory.
func loadKeyRing(gnupgPath string) (*crypto.KeyRing, error) {
	entries, err := os.ReadDir(gnupgPath)
	if err != nil {
		return nil, err
	}

	var keyRing *crypto.KeyRing
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".asc" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(gnupgPath, entry.Name()))
		if err != nil {
			return nil, err
		}
		key, err := crypto.NewKeyFromArmored(string(data))
		if err != nil {
			continue
		}
		if keyRing == nil {
			keyRing, err = crypto.NewKeyRing(key)
			if err != nil {
				return nil, err
			}
			continue
		}
		if err := keyRing.AddKey(key); err != nil {
			return nil, err
		}
	}
	if keyRing == nil {
		return nil, os.ErrNotExist
	}
	return keyRing, nil
}
