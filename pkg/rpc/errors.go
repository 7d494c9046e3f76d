package rpc

import "fmt"

func errParamRange(index, count int) error {
	return fmt.Errorf("rpc: parameter %d out of range (request has %d)", index, count)
}

func errUnknownMethod(method string) error {
	return fmt.Errorf("rpc: unknown method %q", method)
}
