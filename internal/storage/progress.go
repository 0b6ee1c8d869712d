package storage

// progressReader reports cumulative transfer progress as a percentage.
// It satisfies the io.Reader hook the MinIO client calls with each chunk
// that goes over the wire.
type progressReader struct {
	total    int64
	read     int64
	callback func(pct float64)
}

func (r *progressReader) Read(p []byte) (int, error) {
	n := len(p)
	r.read += int64(n)
	if r.callback != nil && r.total > 0 {
		pct := float64(r.read) / float64(r.total) * 100
		if pct > 100 {
			pct = 100
		}
		r.callback(pct)
	}
	return n, nil
}
