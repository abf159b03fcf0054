package topics

// Topic names one shared channel slot between services, namespaced by an
// environment prefix so several deployments can share one broker.
type Topic struct {
	prefix string
	name   string
}

func New(prefix, name string) Topic {
	return Topic{
		prefix: prefix,
		name:   name,
	}
}

func (t Topic) FullName() string {
	if t.prefix == "" {
		return t.name
	}
	return t.prefix + "." + t.name
}

// Clipboard is the hand-off slot a capture gateway writes and a companion
// gateway consumes.
func Clipboard(prefix string) Topic {
	return New(prefix, "clipboard")
}
