package ai

const RoleUser = "user"

// Part is either inline text or a reference to an uploaded file.
type Part struct {
	Text string
	File *RemoteFile
}

// Turn is one entry of a conversation history.
type Turn struct {
	Role  string
	Parts []Part
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func FilePart(f *RemoteFile) Part {
	return Part{File: f}
}

func UserTurn(parts ...Part) Turn {
	return Turn{Role: RoleUser, Parts: parts}
}
