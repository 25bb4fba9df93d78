package source

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/basinlabs/geoframe/internal/frame"
)

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	Name      string
	Delimiter rune   // default ','
	Comment   rune   // comment character (0 = none)
	XColumn   string // longitude / x column; with YColumn set, builds point geometry
	YColumn   string
	SRID      int
	TrimSpace bool
}

// ReadCSV reads a delimited table with a header row into a frame. When
// XColumn and YColumn are set the frame gets a point geometry column.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) (*frame.Frame, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := streamCSV(ctx, r, opts, headerCh)

	var records [][]string
	for row := range rowCh {
		records = append(records, row)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}

	var header []string
	select {
	case header = <-headerCh:
	default:
		return nil, eris.New("csv: empty input")
	}

	return frameFromTable(opts.Name, header, records, opts.XColumn, opts.YColumn, opts.SRID)
}

// streamCSV reads rows into a channel. The header row goes to headerCh,
// data rows to the returned channel. Both returned channels are closed
// when processing completes.
func streamCSV(ctx context.Context, r io.Reader, opts CSVOptions, headerCh chan<- []string) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		if opts.Comment != 0 {
			reader.Comment = opts.Comment
		}
		reader.FieldsPerRecord = -1 // allow variable fields

		first := true
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}

			if first {
				first = false
				select {
				case headerCh <- record:
				case <-ctx.Done():
					errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled sending header")
					return
				}
				continue
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}
