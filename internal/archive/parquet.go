package archive

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/querydesk/querydesk/internal/query"
)

// tableRow is one result row. Values are kept as a JSON object because the
// column set differs per query.
type tableRow struct {
	RowIndex    int64  `parquet:"row_index"`
	PayloadJSON string `parquet:"payload_json"`
}

func encodeTable(result query.Result) ([]byte, error) {
	rows := make([]tableRow, 0, len(result.Rows))
	for i, row := range result.Rows {
		payload, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i, err)
		}
		rows = append(rows, tableRow{RowIndex: int64(i), PayloadJSON: string(payload)})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[tableRow](buf)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return nil, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeTable(data []byte) ([]query.Row, error) {
	rows, err := parquet.Read[tableRow](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read parquet rows: %w", err)
	}

	out := make([]query.Row, len(rows))
	seen := make([]bool, len(rows))
	for _, row := range rows {
		if row.RowIndex < 0 || row.RowIndex >= int64(len(rows)) {
			return nil, fmt.Errorf("row index %d out of range", row.RowIndex)
		}
		if seen[row.RowIndex] {
			return nil, fmt.Errorf("duplicate row index %d", row.RowIndex)
		}
		seen[row.RowIndex] = true
		decoder := json.NewDecoder(bytes.NewReader([]byte(row.PayloadJSON)))
		decoder.UseNumber()
		var values query.Row
		if err := decoder.Decode(&values); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", row.RowIndex, err)
		}
		out[row.RowIndex] = values
	}
	return out, nil
}
