package password

import "golang.org/x/crypto/bcrypt"

func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// Validate rejects values that are not bcrypt hashes, e.g. a plain password pasted into config.
func Validate(hash string) error {
	_, err := bcrypt.Cost([]byte(hash))
	return err
}
