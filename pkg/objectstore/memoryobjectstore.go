package objectstore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
)

// MemoryObjectStore keeps objects in memory. It is safe for concurrent use.
type MemoryObjectStore struct {
	mutex   sync.Mutex
	objects map[[2]string][]byte
}

func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: map[[2]string][]byte{}}
}

func (mos *MemoryObjectStore) PutObject(
	_ context.Context,
	bucket string,
	key string,
	data io.ReadSeeker,
) error {
	var b bytes.Buffer
	if _, err := io.Copy(&b, data); err != nil {
		return err
	}
	mos.mutex.Lock()
	defer mos.mutex.Unlock()
	mos.objects[[2]string{bucket, key}] = b.Bytes()
	return nil
}

func (mos *MemoryObjectStore) GetObject(
	_ context.Context,
	bucket string,
	key string,
) (io.ReadCloser, error) {
	mos.mutex.Lock()
	defer mos.mutex.Unlock()
	data, found := mos.objects[[2]string{bucket, key}]
	if !found {
		return nil, &ObjectNotFoundErr{Bucket: bucket, Key: key}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (mos *MemoryObjectStore) ListObjects(
	_ context.Context,
	bucket string,
	prefix string,
) ([]string, error) {
	mos.mutex.Lock()
	defer mos.mutex.Unlock()
	var out []string
	for key := range mos.objects {
		if key[0] == bucket && strings.HasPrefix(key[1], prefix) {
			out = append(out, key[1])
		}
	}
	sort.Strings(out)
	return out, nil
}

func (mos *MemoryObjectStore) DeleteObject(
	_ context.Context,
	bucket string,
	key string,
) error {
	mos.mutex.Lock()
	defer mos.mutex.Unlock()
	k := [2]string{bucket, key}
	if _, found := mos.objects[k]; !found {
		return &ObjectNotFoundErr{Bucket: bucket, Key: key}
	}
	delete(mos.objects, k)
	return nil
}

// Size reports the stored (possibly compressed) size of an object.
func (mos *MemoryObjectStore) Size(bucket, key string) (int, bool) {
	mos.mutex.Lock()
	defer mos.mutex.Unlock()
	data, found := mos.objects[[2]string{bucket, key}]
	return len(data), found
}
