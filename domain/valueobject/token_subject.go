package valueobject

// SubjectKind records, at issuance time, how an access token identifies its bearer.
type SubjectKind string

const (
	// SubjectDirectory tokens carry only the email; the principal is resolved
	// against the user directory on every request.
	SubjectDirectory SubjectKind = "directory"
	// SubjectEmbedded tokens carry the profile claims needed to build the
	// principal without a directory lookup.
	SubjectEmbedded SubjectKind = "embedded"
)

func (k SubjectKind) Valid() bool {
	return k == SubjectDirectory || k == SubjectEmbedded
}

type TokenSubject struct {
	Kind    SubjectKind
	Email   string
	Name    string
	Picture string
}

func DirectorySubject(email string) TokenSubject {
	return TokenSubject{Kind: SubjectDirectory, Email: email}
}

func EmbeddedSubject(email, name, picture string) TokenSubject {
	return TokenSubject{Kind: SubjectEmbedded, Email: email, Name: name, Picture: picture}
}
