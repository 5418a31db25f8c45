package constraints

import (
	"fmt"

	"github.com/zero-day-ai/fuse/fuseerr"
	"github.com/zero-day-ai/fuse/id"
	"github.com/zero-day-ai/fuse/wire"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// payloadVersion is the first byte of every payload written by this package.
const payloadVersion byte = 1

// seal prefixes body with the payload version and the content-derived
// identifier of typeName over body.
func seal(typeName string, body []byte) (id.ID, []byte, error) {
	uuid, err := id.ForContent(typeName, body)
	if err != nil {
		return id.Nil, nil, err
	}
	w := wire.NewWriter(1 + wire.IDLen + len(body))
	w.Byte(payloadVersion)
	w.ID(uuid)
	w.Raw(body)
	return uuid, w.Bytes(), nil
}

// open checks the version and identifier of a sealed payload and returns a
// reader positioned at the start of the body.
func open(typeName, op string, payload []byte) (id.ID, *wire.Reader, error) {
	r := wire.NewReader(payload)
	version, err := r.Byte()
	if err != nil {
		return id.Nil, nil, fuseerr.Malformed(op, err)
	}
	if version != payloadVersion {
		return id.Nil, nil, fuseerr.Malformedf(op, "unsupported payload version %d", version)
	}
	stored, err := r.ID()
	if err != nil {
		return id.Nil, nil, fuseerr.Malformed(op, err)
	}
	want, err := id.ForContent(typeName, payload[r.Offset():])
	if err != nil {
		return id.Nil, nil, fuseerr.Malformed(op, err)
	}
	if want != stored {
		return id.Nil, nil, fuseerr.Malformedf(op, "identifier %s does not match content (want %s)", id.ID(stored), want)
	}
	return stored, r, nil
}

func writeMatrix(w *wire.Writer, m mat.Matrix) {
	rows, cols := m.Dims()
	w.Uvarint(uint64(rows))
	w.Uvarint(uint64(cols))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			w.Float64(m.At(i, j))
		}
	}
}

func readMatrix(r *wire.Reader) (*mat.Dense, error) {
	rows, err := r.Uvarint()
	if err != nil {
		return nil, err
	}
	cols, err := r.Uvarint()
	if err != nil {
		return nil, err
	}
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("%w: empty %dx%d matrix", wire.ErrInvalidLength, rows, cols)
	}
	if rows > uint64(r.Remaining()/8) || cols > uint64(r.Remaining()/8)/rows {
		return nil, fmt.Errorf("%w: %dx%d matrix exceeds %d remaining bytes", wire.ErrInvalidLength, rows, cols, r.Remaining())
	}
	m := mat.NewDense(int(rows), int(cols), nil)
	for i := 0; i < int(rows); i++ {
		for j := 0; j < int(cols); j++ {
			v, err := r.Float64()
			if err != nil {
				return nil, err
			}
			m.Set(i, j, v)
		}
	}
	return m, nil
}

func rowsOf(m mat.Matrix) [][]float64 {
	rows, cols := m.Dims()
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
		for j := range out[i] {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

func describe(typeName string, doc any) string {
	out, err := yaml.Marshal(map[string]any{typeName: doc})
	if err != nil {
		return fmt.Sprintf("%s: <%v>\n", typeName, err)
	}
	return string(out)
}
