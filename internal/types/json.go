package types

import "encoding/json"

func marshalStringSlice[T ~string](items []T) ([]byte, error) {
	strs := make([]string, len(items))
	for i, item := range items {
		strs[i] = string(item)
	}
	if strs == nil {
		strs = []string{}
	}
	return json.Marshal(strs)
}

func unmarshalStringSlice[T ~string](data []byte) ([]T, error) {
	var strs []string
	if err := json.Unmarshal(data, &strs); err != nil {
		return nil, err
	}
	items := make([]T, len(strs))
	for i, s := range strs {
		items[i] = T(s)
	}
	return items, nil
}
