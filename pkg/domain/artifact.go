package domain

import "strings"

// ArtifactKind identifies one of the fixed files a submission run produces.
type ArtifactKind int

const (
	ArtifactReplPack ArtifactKind = iota
	ArtifactStdout
	ArtifactStderr
	ArtifactTRO
	ArtifactTSR
	ArtifactSig
)

// ArtifactWildcard selects every artifact slot on the command line.
const ArtifactWildcard = "all"

// ArtifactSpec ties a slot to its CLI name, its display name, the folder
// metadata field holding its file id, and the item type tag it is uploaded
// with.
type ArtifactSpec struct {
	Kind        ArtifactKind
	Name        string
	DisplayName string
	MetaField   string
	TypeTag     string
}

var artifactRegistry = [...]ArtifactSpec{
	ArtifactReplPack: {ArtifactReplPack, "ReplPack", "Replicated Package", "replpack_file_id", "replpack"},
	ArtifactStdout:   {ArtifactStdout, "stdout", "Run output log", "stdout_file_id", "stdout"},
	ArtifactStderr:   {ArtifactStderr, "stderr", "Run error log", "stderr_file_id", "stderr"},
	ArtifactTRO:      {ArtifactTRO, "tro", "TRO Declaration", "tro_file_id", "tro"},
	ArtifactTSR:      {ArtifactTSR, "tsr", "Trusted Timestamp", "tsr_file_id", "tsr"},
	ArtifactSig:      {ArtifactSig, "sig", "TRS Signature", "sig_file_id", "sig"},
}

// Artifacts returns the registry in slot order.
func Artifacts() []ArtifactSpec {
	out := make([]ArtifactSpec, len(artifactRegistry))
	copy(out, artifactRegistry[:])
	return out
}

// ArtifactNames returns the CLI names of every slot.
func ArtifactNames() []string {
	out := make([]string, 0, len(artifactRegistry))
	for _, s := range artifactRegistry {
		out = append(out, s.Name)
	}
	return out
}

func (k ArtifactKind) Valid() bool {
	return k >= 0 && int(k) < len(artifactRegistry)
}

func (k ArtifactKind) Spec() ArtifactSpec {
	if !k.Valid() {
		return ArtifactSpec{Kind: k}
	}
	return artifactRegistry[k]
}

func (k ArtifactKind) String() string {
	if !k.Valid() {
		return "unknown"
	}
	return artifactRegistry[k].Name
}

// ParseArtifactKind resolves a CLI name, ignoring case.
func ParseArtifactKind(name string) (ArtifactKind, bool) {
	name = strings.TrimSpace(name)
	for _, s := range artifactRegistry {
		if strings.EqualFold(s.Name, name) {
			return s.Kind, true
		}
	}
	return 0, false
}

// ArtifactKindForType resolves an item's metadata type tag.
func ArtifactKindForType(tag string) (ArtifactKind, bool) {
	if tag == "" {
		return 0, false
	}
	for _, s := range artifactRegistry {
		if s.TypeTag == tag {
			return s.Kind, true
		}
	}
	return 0, false
}
