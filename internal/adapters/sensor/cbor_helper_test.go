package sensor_test

import "github.com/fxamacker/cbor/v2"

func mustCBOR(v any) []byte {
	data, err := cbor.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
