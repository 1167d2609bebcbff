// Package mocks provides test doubles for ports interfaces.
//
// These mocks are simple, thread-safe, in-memory implementations suitable for
// unit testing. Each mock provides:
//
//   - Default behavior that returns reasonable test values
//   - Callback functions (xxxFn) for customizing behavior per test
//   - Helper methods for setting state directly
//   - Recorded calls for assertions
//
// # Usage Example
//
//	func TestMyService(t *testing.T) {
//		tr := mocks.NewTransport()
//		tr.AddMessages(domain.Message{ID: 1, Text: "hi"})
//
//		svc := NewService(tr)
//		// ... test service behavior
//		require.Len(t, tr.Sent(), 1)
//	}
//
// # Available Mocks
//
//   - Transport: implements ports.Transport
package mocks
