package metrics

import (
	"io"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/ipc"
	"github.com/apache/arrow/go/v13/arrow/memory"

	"github.com/voxpcg/pcgse-go/pkg/errors"
)

// ExportArrow writes the metric's per-generation averages as an Arrow
// IPC file with columns (generation, emitter, value).
func (m *Metric) ExportArrow(w io.Writer) error {
	averages := m.Averages()
	emitters := m.EmitterNames()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "generation", Type: arrow.PrimitiveTypes.Int64},
		{Name: "emitter", Type: arrow.BinaryTypes.String},
		{Name: "value", Type: arrow.PrimitiveTypes.Float64},
	}, nil)

	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()

	genBuilder := builder.Field(0).(*array.Int64Builder)
	emitterBuilder := builder.Field(1).(*array.StringBuilder)
	valueBuilder := builder.Field(2).(*array.Float64Builder)

	for gen, avg := range averages {
		genBuilder.Append(int64(gen))
		if gen < len(emitters) {
			emitterBuilder.Append(emitters[gen])
		} else {
			emitterBuilder.Append("")
		}
		valueBuilder.Append(avg)
	}

	record := builder.NewRecord()
	defer record.Release()

	// ipc.NewFileWriter needs an io.WriteSeeker; build the IPC file in
	// memory and copy it to w so callers keep passing a plain io.Writer.
	var seeker bufferWriteSeeker
	writer, err := ipc.NewFileWriter(&seeker, ipc.WithSchema(schema))
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to open metric export writer")
	}
	if err := writer.Write(record); err != nil {
		writer.Close()
		return errors.Wrap(err, errors.Unknown, "failed to write metric record")
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to finalize metric export")
	}
	if _, err := w.Write(seeker.buf); err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to flush metric export")
	}
	return nil
}

// bufferWriteSeeker is a minimal in-memory io.WriteSeeker backing the
// Arrow IPC file writer.
type bufferWriteSeeker struct {
	buf []byte
	pos int
}

func (b *bufferWriteSeeker) Write(p []byte) (int, error) {
	if end := b.pos + len(p); end > len(b.buf) {
		b.buf = append(b.buf, make([]byte, end-len(b.buf))...)
	}
	copy(b.buf[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *bufferWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.pos) + offset
	case io.SeekEnd:
		abs = int64(len(b.buf)) + offset
	default:
		return 0, errors.New(errors.InvalidInput, "bufferWriteSeeker: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New(errors.InvalidInput, "bufferWriteSeeker: negative position")
	}
	b.pos = int(abs)
	return abs, nil
}
