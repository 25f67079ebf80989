package restclient

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockRestClient struct {
	mock.Mock
}

var _ Interface = &MockRestClient{}

func (m *MockRestClient) Get(ctx context.Context, endpoint string, headers map[string]string) ([]byte, int, error) {
	args := m.Called(ctx, endpoint, headers)
	return args.Get(0).([]byte), args.Get(1).(int), args.Error(2)
}

func (m *MockRestClient) Head(ctx context.Context, endpoint string) (int, error) {
	args := m.Called(ctx, endpoint)
	return args.Get(0).(int), args.Error(1)
}

func (m *MockRestClient) Post(ctx context.Context, endpoint string, body any, headers map[string]string) ([]byte, int, error) {
	args := m.Called(ctx, endpoint, body, headers)
	return args.Get(0).([]byte), args.Get(1).(int), args.Error(2)
}

func (m *MockRestClient) PostRaw(ctx context.Context, endpoint string, body []byte, contentType string) ([]byte, int, error) {
	args := m.Called(ctx, endpoint, body, contentType)
	return args.Get(0).([]byte), args.Get(1).(int), args.Error(2)
}

func (m *MockRestClient) Put(ctx context.Context, endpoint string, body any, headers map[string]string) ([]byte, int, error) {
	args := m.Called(ctx, endpoint, body, headers)
	return args.Get(0).([]byte), args.Get(1).(int), args.Error(2)
}

func (m *MockRestClient) Delete(ctx context.Context, endpoint string, headers map[string]string) ([]byte, int, error) {
	args := m.Called(ctx, endpoint, headers)
	return args.Get(0).([]byte), args.Get(1).(int), args.Error(2)
}
