package payload

import (
	"bufio"
	"crypto/rand"
	"fmt"
	"io"
	"os"
)

// Generate writes sizeKB kilobytes of random data to path, truncating any
// existing file. The file is closed before Generate returns, so uploads
// started afterwards always see the complete payload.
func Generate(path string, sizeKB int) error {
	if sizeKB < 0 {
		return fmt.Errorf("payload size must not be negative, got %d", sizeKB)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create payload file: %w", err)
	}

	w := bufio.NewWriter(f)
	if _, err := io.CopyN(w, rand.Reader, int64(sizeKB)*1024); err != nil {
		f.Close()
		return fmt.Errorf("failed to write payload: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush payload: %w", err)
	}

	return f.Close()
}
