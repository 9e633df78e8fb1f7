package repository

import (
	"encoding/json"

	"gorm.io/datatypes"
)

func marshalStrings(ss []string) (datatypes.JSON, error) {
	if ss == nil {
		ss = []string{}
	}
	b, err := json.Marshal(ss)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func unmarshalStrings(j datatypes.JSON) ([]string, error) {
	if len(j) == 0 {
		return nil, nil
	}
	var ss []string
	if err := json.Unmarshal(j, &ss); err != nil {
		return nil, err
	}
	return ss, nil
}
