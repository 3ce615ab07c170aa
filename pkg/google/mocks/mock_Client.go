// Package mocks provides test doubles for the google client.
package mocks

import (
	"context"

	google "github.com/sells-group/practice-audit/pkg/google"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// TextSearch provides a mock function with given fields: ctx, query, maxResults
func (_m *MockClient) TextSearch(ctx context.Context, query string, maxResults int) (*google.TextSearchResponse, error) {
	ret := _m.Called(ctx, query, maxResults)

	if len(ret) == 0 {
		panic("no return value specified for TextSearch")
	}

	var r0 *google.TextSearchResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int) (*google.TextSearchResponse, error)); ok {
		return rf(ctx, query, maxResults)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*google.TextSearchResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// RunPagespeed provides a mock function with given fields: ctx, targetURL
func (_m *MockClient) RunPagespeed(ctx context.Context, targetURL string) (*google.PagespeedResponse, error) {
	ret := _m.Called(ctx, targetURL)

	if len(ret) == 0 {
		panic("no return value specified for RunPagespeed")
	}

	var r0 *google.PagespeedResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*google.PagespeedResponse, error)); ok {
		return rf(ctx, targetURL)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*google.PagespeedResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// FindThreatMatches provides a mock function with given fields: ctx, targetURL
func (_m *MockClient) FindThreatMatches(ctx context.Context, targetURL string) (*google.ThreatMatchesResponse, error) {
	ret := _m.Called(ctx, targetURL)

	if len(ret) == 0 {
		panic("no return value specified for FindThreatMatches")
	}

	var r0 *google.ThreatMatchesResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*google.ThreatMatchesResponse, error)); ok {
		return rf(ctx, targetURL)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*google.ThreatMatchesResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// Annotate provides a mock function with given fields: ctx, image
func (_m *MockClient) Annotate(ctx context.Context, image string) (*google.AnnotateResult, error) {
	ret := _m.Called(ctx, image)

	if len(ret) == 0 {
		panic("no return value specified for Annotate")
	}

	var r0 *google.AnnotateResult
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*google.AnnotateResult, error)); ok {
		return rf(ctx, image)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*google.AnnotateResult)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// AnalyzeSentiment provides a mock function with given fields: ctx, text
func (_m *MockClient) AnalyzeSentiment(ctx context.Context, text string) (*google.SentimentResponse, error) {
	ret := _m.Called(ctx, text)

	if len(ret) == 0 {
		panic("no return value specified for AnalyzeSentiment")
	}

	var r0 *google.SentimentResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*google.SentimentResponse, error)); ok {
		return rf(ctx, text)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*google.SentimentResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// QueryRecord provides a mock function with given fields: ctx, targetURL
func (_m *MockClient) QueryRecord(ctx context.Context, targetURL string) (*google.CrUXResponse, error) {
	ret := _m.Called(ctx, targetURL)

	if len(ret) == 0 {
		panic("no return value specified for QueryRecord")
	}

	var r0 *google.CrUXResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*google.CrUXResponse, error)); ok {
		return rf(ctx, targetURL)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*google.CrUXResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// Translate provides a mock function with given fields: ctx, text, target
func (_m *MockClient) Translate(ctx context.Context, text string, target string) (string, error) {
	ret := _m.Called(ctx, text, target)

	if len(ret) == 0 {
		panic("no return value specified for Translate")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, string) (string, error)); ok {
		return rf(ctx, text, target)
	}
	return ret.String(0), ret.Error(1)
}

// NewMockClient creates a new instance of MockClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ google.Client = (*MockClient)(nil)
