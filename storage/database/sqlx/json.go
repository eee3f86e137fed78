package sqlxrepos

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// jsonCol encodes v for a JSONB column.
func jsonCol(v interface{}) (null.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return null.JSON{}, errors.Wrap(err, "encoding json column")
	}
	return null.JSONFrom(b), nil
}

// fromJSONCol decodes a JSONB column into dst; NULL leaves dst untouched.
func fromJSONCol(col null.JSON, dst interface{}) error {
	if !col.Valid {
		return nil
	}
	return errors.Wrap(col.Unmarshal(dst), "decoding json column")
}
