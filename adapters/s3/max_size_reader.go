package s3

import (
	"errors"
	"fmt"
	"io"
)

type ReachLimitError struct {
	MaxBytes int64
}

func (e *ReachLimitError) Error() string {
	return fmt.Sprintf("reach limit of %s", FormatBytes(e.MaxBytes))
}

// NewMaxSizeReader 包裝 r，讀取超過 maxSize 位元組時返回 ReachLimitError
func NewMaxSizeReader(r io.Reader, maxSize int64) io.Reader {
	return &maxSizeReader{reader: r, limit: maxSize, remaining: maxSize}
}

type maxSizeReader struct {
	reader    io.Reader
	limit     int64
	remaining int64
}

func (r *maxSizeReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	// 只需要多讀一個位元組就能判斷是否超過限制
	if int64(len(p)) > r.remaining+1 {
		p = p[:r.remaining+1]
	}
	n, err := r.reader.Read(p)
	if int64(n) <= r.remaining {
		r.remaining -= int64(n)
		return n, err
	}
	n = int(r.remaining)
	r.remaining = 0
	return n, &ReachLimitError{r.limit}
}

// ReadAllLimited 讀取全部內容，超過 maxSize 時返回 ReachLimitError
func ReadAllLimited(r io.Reader, maxSize int64) ([]byte, error) {
	content, err := io.ReadAll(NewMaxSizeReader(r, maxSize))
	var limitErr *ReachLimitError
	if errors.As(err, &limitErr) {
		return nil, limitErr
	}
	if err != nil {
		return nil, fmt.Errorf("[ReadAllLimited] Fail to read content, err=%w", err)
	}
	return content, nil
}
