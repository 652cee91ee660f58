package service

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strconv"
)

const (
	codeMin = 100000
	codeMax = 999999
)

func newID() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// newCode draws a six digit code uniformly from [100000, 999999], so it never has a leading zero.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}
