package topology

// ModelClient is the registry name for a client endpoint node.
const ModelClient = "client"

func init() {
	if err := Register(ModelClient, newClientNode); err != nil {
		panic(err)
	}
}

func newClientNode(id uint64, model string) *Node {
	return &Node{id: id, kind: KindEndpoint, model: model}
}
