package cabinet

// CFFILE attribute bits, [MS-CAB] §2.7. attribExec and attribNameIsUTF are
// the two bits this package actually sets; the others exist so a caller's
// raw manifest attribute integer can carry them through untouched.
const (
	attribReadOnly = 1 << iota
	attribHidden
	attribSystem
	_
	_
	attribArchive
	attribExec
	attribNameIsUTF
)
