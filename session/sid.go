package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SeqNums is the pair of sequence counters that must survive a reconnect:
// the next number this side will assign on send, and the next number
// expected from the counterparty.
type SeqNums struct {
	NextSend   int
	NextExpect int
}

// sidPath returns the connection-scoped sid file path, named after the
// counterparty the way a FIX gateway's session ID conventionally combines
// SenderCompID and TargetCompID.
func sidPath(dir, senderCompID, targetCompID string) string {
	name := strings.ToUpper(senderCompID) + "-" + strings.ToUpper(targetCompID) + ".sid"
	return filepath.Join(dir, name)
}

// LoadSeqNums reads the persisted counters for (senderCompID, targetCompID)
// from dir. A missing file is not an error: it returns SeqNums{1, 1}, the
// counters a brand new session starts with.
func LoadSeqNums(dir, senderCompID, targetCompID string) (SeqNums, error) {
	path := sidPath(dir, senderCompID, targetCompID)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return SeqNums{NextSend: 1, NextExpect: 1}, nil
	}
	if err != nil {
		return SeqNums{}, err
	}

	var n SeqNums
	if _, err := fmt.Sscanf(string(data), "%d %d", &n.NextSend, &n.NextExpect); err != nil {
		return SeqNums{}, fmt.Errorf("session: malformed sid file %s: %w", path, err)
	}
	return n, nil
}

// StoreSeqNums persists n for (senderCompID, targetCompID) under dir,
// creating dir if needed.
func StoreSeqNums(dir, senderCompID, targetCompID string, n SeqNums) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := sidPath(dir, senderCompID, targetCompID)
	data := []byte(fmt.Sprintf("%d %d\n", n.NextSend, n.NextExpect))
	return os.WriteFile(path, data, 0o644)
}
