package domain

import (
	"encoding/json"
	"fmt"
)

// Record is a raw entry of the local key/value store.
type Record struct {
	Key     string
	Payload []byte
}

type StoredBucket struct {
	Key    BucketKey
	Bucket Bucket
}

func DecodeBucket(payload []byte) (Bucket, error) {
	bucket := Bucket{}
	if len(payload) == 0 {
		return bucket, nil
	}
	if err := json.Unmarshal(payload, &bucket); err != nil {
		return nil, fmt.Errorf("decode bucket: %w", err)
	}
	for name, cat := range bucket {
		if cat == nil {
			delete(bucket, name)
		}
	}
	return bucket, nil
}

func EncodeBucket(bucket Bucket) ([]byte, error) {
	payload, err := json.Marshal(bucket)
	if err != nil {
		return nil, fmt.Errorf("encode bucket: %w", err)
	}
	return payload, nil
}
