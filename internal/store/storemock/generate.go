// Package storemock provides gomock implementations of the store repository
// interfaces for tests that need to inject persistence failures.
//
// To regenerate after interface changes, run:
//
//	go generate ./internal/store/storemock
package storemock

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=storemock -destination=repository_mock.go github.com/seantiz/asyncops/internal/store OperationRepository,ChildRepository
