package objectstore

import (
	"context"
	"fmt"
	"sync"
)

type mockS3Client struct {
	mu           sync.RWMutex
	objects      map[string][]byte
	contentTypes map[string]string
	putErr       string
	getErr       string
}

func newMockS3Client() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte), contentTypes: make(map[string]string)}
}

func (m *mockS3Client) setPutError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErr = msg
}

func (m *mockS3Client) setGetError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = msg
}

func (m *mockS3Client) contentType(bucket, key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.contentTypes[bucket+"/"+key]
}

func (m *mockS3Client) PutObject(_ context.Context, bucket, key, contentType string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != "" {
		return fmt.Errorf("%s", m.putErr)
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	m.objects[bucket+"/"+key] = copied
	m.contentTypes[bucket+"/"+key] = contentType
	return nil
}

func (m *mockS3Client) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != "" {
		return nil, fmt.Errorf("%s", m.getErr)
	}
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("NoSuchKey: %s/%s: %w", bucket, key, ErrNotFound)
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}
