package worldobjects

import "github.com/isrecalpear/quantum-space-buddies/pkg/world"

// DialogueTree is the conversation of one character.
type DialogueTree interface {
	Name() string
	StartConversation()
	EndConversation()
	InConversation() bool
}

// NpcAnimController keeps a character's conversation state in step across
// peers.
type NpcAnimController struct {
	world.Base

	tree DialogueTree
	out  Outbox
}

func NewNpcAnimController(tree DialogueTree, out Outbox) *NpcAnimController {
	return &NpcAnimController{tree: tree, out: out}
}

func (n *NpcAnimController) Name() string {
	return n.tree.Name()
}

func (n *NpcAnimController) StartConversation() {
	n.tree.StartConversation()
}

func (n *NpcAnimController) EndConversation() {
	n.tree.EndConversation()
}

func (n *NpcAnimController) InConversation() bool {
	return n.tree.InConversation()
}

// HandleConversation publishes a locally started or ended conversation.
func (n *NpcAnimController) HandleConversation(start bool) {
	if r := n.Registry(); r == nil || !r.AllReady() {
		return
	}
	n.out.Conversation(n.ObjectID(), start)
}
