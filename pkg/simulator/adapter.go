package simulator

import "fmt"

// Method enumerates the simulator RPC surface. Typing these as a closed set
// (rather than bare strings) lets callers switch exhaustively and catches
// typos in method names at compile time.
type Method string

const (
	MethodGetUniformInteger  Method = "get_uniform_integer"
	MethodGetUniformReal     Method = "get_uniform_real"
	MethodGetWeightedInteger Method = "get_weighted_integer"
	MethodCreateSystem       Method = "create_system"
	MethodDeleteSystem       Method = "delete_system"
	MethodCreateState        Method = "create_state"
	MethodDeleteState        Method = "delete_state"
	MethodModifyState        Method = "modify_state"
	MethodMeasureState       Method = "measure_state"
	MethodComputeResult      Method = "compute_result"
)

func call(c *Client, method Method, parameters ...interface{}) (Response, error) {
	resp, err := c.Call(Request{Method: string(method), Parameters: parameters})
	if err != nil {
		return Response{}, err
	}
	if resp.Error {
		return Response{}, fmt.Errorf("simulator: %s returned an error", method)
	}
	return resp, nil
}

func resultBool(resp Response) (bool, error) {
	b, ok := resp.Result.(bool)
	if !ok {
		return false, fmt.Errorf("simulator: expected bool result, got %T", resp.Result)
	}
	return b, nil
}

func resultUint64(resp Response) (uint64, error) {
	n, ok := resp.Result.(float64)
	if !ok {
		return 0, fmt.Errorf("simulator: expected numeric result, got %T", resp.Result)
	}
	return uint64(n), nil
}

func resultString(resp Response) (string, error) {
	s, ok := resp.Result.(string)
	if !ok {
		return "", fmt.Errorf("simulator: expected string result, got %T", resp.Result)
	}
	return s, nil
}

func resultUint64Array(resp Response) ([]uint64, error) {
	arr, ok := resp.Result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("simulator: expected array result, got %T", resp.Result)
	}
	out := make([]uint64, len(arr))
	for i, v := range arr {
		n, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("simulator: expected numeric array element, got %T", v)
		}
		out[i] = uint64(n)
	}
	return out, nil
}

func resultInt64Array(resp Response) ([]int64, error) {
	arr, ok := resp.Result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("simulator: expected array result, got %T", resp.Result)
	}
	out := make([]int64, len(arr))
	for i, v := range arr {
		n, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("simulator: expected numeric array element, got %T", v)
		}
		out[i] = int64(n)
	}
	return out, nil
}

func resultFloat64Array(resp Response) ([]float64, error) {
	arr, ok := resp.Result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("simulator: expected array result, got %T", resp.Result)
	}
	out := make([]float64, len(arr))
	for i, v := range arr {
		n, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("simulator: expected numeric array element, got %T", v)
		}
		out[i] = n
	}
	return out, nil
}

// GetUniformInteger requests a uniformly distributed integer in [lo, hi].
func GetUniformInteger(c *Client, lo, hi int64) (uint64, error) {
	resp, err := call(c, MethodGetUniformInteger, lo, hi)
	if err != nil {
		return 0, err
	}
	return resultUint64(resp)
}

// GetUniformReal requests a uniformly distributed real in [lo, hi].
func GetUniformReal(c *Client, lo, hi float64) (float64, error) {
	resp, err := call(c, MethodGetUniformReal, lo, hi)
	if err != nil {
		return 0, err
	}
	n, ok := resp.Result.(float64)
	if !ok {
		return 0, fmt.Errorf("simulator: expected numeric result, got %T", resp.Result)
	}
	return n, nil
}

// GetWeightedInteger requests an integer drawn from the given weights.
func GetWeightedInteger(c *Client, weights []float64) (uint64, error) {
	resp, err := call(c, MethodGetWeightedInteger, weights)
	if err != nil {
		return 0, err
	}
	return resultUint64(resp)
}

// CreateSystem creates a simulator system of the given state type, e.g.
// "chp_state". systemID, by convention in this dispatcher, is always 1.
func CreateSystem(c *Client, stateType string) (uint64, error) {
	resp, err := call(c, MethodCreateSystem, stateType)
	if err != nil {
		return 0, err
	}
	return resultUint64(resp)
}

// DeleteSystem tears down a previously created system.
func DeleteSystem(c *Client, systemID uint64) (bool, error) {
	resp, err := call(c, MethodDeleteSystem, systemID)
	if err != nil {
		return false, err
	}
	return resultBool(resp)
}

// CreateState allocates a new state within a system.
func CreateState(c *Client, systemID uint64) (uint64, error) {
	resp, err := call(c, MethodCreateState, systemID)
	if err != nil {
		return 0, err
	}
	return resultUint64(resp)
}

// DeleteState releases a previously created state.
func DeleteState(c *Client, systemID, stateID uint64) (bool, error) {
	resp, err := call(c, MethodDeleteState, systemID, stateID)
	if err != nil {
		return false, err
	}
	return resultBool(resp)
}

// ModifyState applies circuit to a state, returning the simulator's
// acknowledgement.
func ModifyState(c *Client, systemID, stateID uint64, circuit string) (bool, error) {
	resp, err := call(c, MethodModifyState, systemID, stateID, circuit)
	if err != nil {
		return false, err
	}
	return resultBool(resp)
}

// MeasureState performs a measurement and returns the resulting bitstring
// (e.g. "101").
func MeasureState(c *Client, systemID, stateID uint64) (string, error) {
	resp, err := call(c, MethodMeasureState, systemID, stateID)
	if err != nil {
		return "", err
	}
	return resultString(resp)
}

// ComputeResult is the tx-path RPC: apply unit's circuit against systemID
// and return the measurement as a base-2 bitstring.
func ComputeResult(c *Client, systemID uint64, unit Unit) (string, error) {
	resp, err := call(c, MethodComputeResult, systemID, unit.Dialect, unit.Description, string(unit.Delimiter))
	if err != nil {
		return "", err
	}
	return resultString(resp)
}

// ResultKind names the decoded shape of a simulator result value, used by
// callers that need to branch generically over response.Result rather than
// calling a typed wrapper (e.g. a diagnostics dump of raw traffic).
type ResultKind int

const (
	ResultBool ResultKind = iota
	ResultUint64Kind
	ResultString
	ResultUint64Slice
	ResultInt64Slice
	ResultFloat64Slice
)

// Decode interprets resp.Result according to kind. It exists for generic
// callers (e.g. a diagnostics dump of raw simulator traffic) that know the
// expected shape only at runtime rather than through one of the typed
// wrappers above.
func Decode(resp Response, kind ResultKind) (interface{}, error) {
	switch kind {
	case ResultBool:
		return resultBool(resp)
	case ResultUint64Kind:
		return resultUint64(resp)
	case ResultString:
		return resultString(resp)
	case ResultUint64Slice:
		return resultUint64Array(resp)
	case ResultInt64Slice:
		return resultInt64Array(resp)
	case ResultFloat64Slice:
		return resultFloat64Array(resp)
	default:
		return nil, fmt.Errorf("simulator: unknown result kind %d", kind)
	}
}
