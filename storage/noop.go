package storage

import "context"

type NoopStorage struct {
}

func (s *NoopStorage) WriteResults(ctx context.Context, run string, rs []*Record) error {
	return nil
}

func (s *NoopStorage) GetResults(ctx context.Context, run string) ([]*Record, error) {
	return nil, nil
}

func (s *NoopStorage) Runs(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (s *NoopStorage) Close(ctx context.Context) error {
	return nil
}
