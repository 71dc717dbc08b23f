package registry

import "github.com/stretchr/testify/mock"

// MockJournal implements the Journal interface for testing.
type MockJournal struct {
	mock.Mock
}

func (j *MockJournal) WriteRecord(rec Record) error {
	args := j.Mock.Called(rec)
	return args.Error(0)
}

func (j *MockJournal) Close() error {
	args := j.Mock.Called()
	return args.Error(0)
}
