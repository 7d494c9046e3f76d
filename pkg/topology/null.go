package topology

// ModelNullEndpoint is the registry name for a null sink node: a terminal
// that discards everything routed to it.
const ModelNullEndpoint = "null_endpoint"

func init() {
	if err := Register(ModelNullEndpoint, newNullNode); err != nil {
		panic(err)
	}
}

func newNullNode(id uint64, model string) *Node {
	return &Node{id: id, kind: KindNull, model: model}
}
