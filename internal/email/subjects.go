package email

const (
	subjectProposalFmt = "Opciones de cita para tu reparación de %s"
	subjectProposal    = "Opciones de cita para tu reparación"
	subjectExpiry      = "Tus opciones de cita han caducado"
)
