package topology

// ModelCirculatorSwitch is the registry name for the circulator switch: the
// sole concrete switch variant, whose routing state is a chirality and
// whose routing function is a ±1 rotation over the port index.
const ModelCirculatorSwitch = "circulator_switch"

// defaultCirculatorPortCount is used only until the parser's ResizeSwitch
// call sets the port count from the topology document.
const defaultCirculatorPortCount = 3

func init() {
	if err := Register(ModelCirculatorSwitch, newCirculatorNode); err != nil {
		panic(err)
	}
}

func newCirculatorNode(id uint64, model string) *Node {
	return &Node{
		id:        id,
		kind:      KindSwitch,
		model:     model,
		chirality: ChiralityCCW,
		ports:     make([]switchPort, defaultCirculatorPortCount),
	}
}
