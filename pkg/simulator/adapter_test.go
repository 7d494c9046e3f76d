package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterCreateSystemAndMeasure(t *testing.T) {
	addr := startFakeServer(t, func(req Request) Response {
		switch req.Method {
		case string(MethodCreateSystem):
			return Response{Result: float64(1)}
		case string(MethodMeasureState):
			return Response{Result: "110"}
		case string(MethodComputeResult):
			return Response{Result: "1"}
		default:
			return Response{Error: true}
		}
	})

	client, err := NewClient(addr, time.Second, time.Second)
	require.NoError(t, err)
	defer client.Close()

	sysID, err := CreateSystem(client, "chp_state")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), sysID)

	bits, err := MeasureState(client, sysID, 0)
	require.NoError(t, err)
	assert.Equal(t, "110", bits)

	unit, err := NewUnit("chp", "X 0\nM 0", '\n')
	require.NoError(t, err)
	result, err := ComputeResult(client, sysID, unit)
	require.NoError(t, err)
	assert.Equal(t, "1", result)
}

func TestDecodeResultKinds(t *testing.T) {
	boolResp := Response{Result: true}
	v, err := Decode(boolResp, ResultBool)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	arrResp := Response{Result: []interface{}{float64(1), float64(2)}}
	v, err = Decode(arrResp, ResultUint64Slice)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, v)

	_, err = Decode(Response{}, ResultKind(99))
	assert.Error(t, err)
}
