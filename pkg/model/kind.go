package model

// Kind is the closed set of element kinds. Every switch over Kind in this
// module lists all cases; adding a kind means revisiting each of them.
type Kind int

const (
	KindInvalid Kind = iota

	// PIM kinds
	KindPackage
	KindPrimitiveType
	KindProfile
	KindClass
	KindAssociationClass
	KindComment
	KindGeneralization
	KindAssociation
	KindPIMDiagram

	// PSM kinds
	KindPSMDiagram
	KindPSMClass
	KindContentContainer
	KindContentChoice
	KindAttributeContainer
	KindPSMAssociation
	KindClassUnion
	KindPSMGeneralization

	// Cross-diagram kinds
	KindDiagramReference
)

// Kinds lists every valid kind in declaration order.
var Kinds = []Kind{
	KindPackage, KindPrimitiveType, KindProfile, KindClass, KindAssociationClass,
	KindComment, KindGeneralization, KindAssociation, KindPIMDiagram,
	KindPSMDiagram, KindPSMClass, KindContentContainer, KindContentChoice,
	KindAttributeContainer, KindPSMAssociation, KindClassUnion, KindPSMGeneralization,
	KindDiagramReference,
}

// String returns the kind name used in scenario files and error messages.
func (k Kind) String() string {
	switch k {
	case KindPackage:
		return "package"
	case KindPrimitiveType:
		return "primitive-type"
	case KindProfile:
		return "profile"
	case KindClass:
		return "class"
	case KindAssociationClass:
		return "association-class"
	case KindComment:
		return "comment"
	case KindGeneralization:
		return "generalization"
	case KindAssociation:
		return "association"
	case KindPIMDiagram:
		return "pim-diagram"
	case KindPSMDiagram:
		return "psm-diagram"
	case KindPSMClass:
		return "psm-class"
	case KindContentContainer:
		return "content-container"
	case KindContentChoice:
		return "content-choice"
	case KindAttributeContainer:
		return "attribute-container"
	case KindPSMAssociation:
		return "psm-association"
	case KindClassUnion:
		return "class-union"
	case KindPSMGeneralization:
		return "psm-generalization"
	case KindDiagramReference:
		return "diagram-reference"
	case KindInvalid:
		return "invalid"
	}
	return "invalid"
}

// ParseKind converts a kind name back to a Kind.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if k.String() == s {
			return k, true
		}
	}
	return KindInvalid, false
}

// IsDiagram reports whether k is a diagram kind.
func (k Kind) IsDiagram() bool { return k == KindPIMDiagram || k == KindPSMDiagram }

// IsTreeNode reports whether k takes part in PSM tree structure.
func (k Kind) IsTreeNode() bool {
	switch k {
	case KindPSMClass, KindContentContainer, KindContentChoice, KindAttributeContainer,
		KindPSMAssociation, KindClassUnion, KindPSMGeneralization:
		return true
	case KindInvalid, KindPackage, KindPrimitiveType, KindProfile, KindClass, KindAssociationClass,
		KindComment, KindGeneralization, KindAssociation, KindPIMDiagram, KindPSMDiagram,
		KindDiagramReference:
		return false
	}
	return false
}

// IsSuperordinate reports whether k owns an ordered list of subordinate
// components.
func (k Kind) IsSuperordinate() bool {
	switch k {
	case KindPSMClass, KindContentContainer, KindContentChoice:
		return true
	case KindInvalid, KindPackage, KindPrimitiveType, KindProfile, KindClass, KindAssociationClass,
		KindComment, KindGeneralization, KindAssociation, KindPIMDiagram, KindPSMDiagram,
		KindAttributeContainer, KindPSMAssociation, KindClassUnion, KindPSMGeneralization,
		KindDiagramReference:
		return false
	}
	return false
}

// IsSubordinate reports whether k sits in a superordinate's component list.
func (k Kind) IsSubordinate() bool {
	switch k {
	case KindContentContainer, KindContentChoice, KindAttributeContainer, KindPSMAssociation:
		return true
	case KindInvalid, KindPackage, KindPrimitiveType, KindProfile, KindClass, KindAssociationClass,
		KindComment, KindGeneralization, KindAssociation, KindPIMDiagram, KindPSMDiagram,
		KindPSMClass, KindClassUnion, KindPSMGeneralization, KindDiagramReference:
		return false
	}
	return false
}

// IsAssociationChild reports whether k may be the child of a PSM association.
func (k Kind) IsAssociationChild() bool {
	switch k {
	case KindPSMClass, KindClassUnion:
		return true
	case KindInvalid, KindPackage, KindPrimitiveType, KindProfile, KindClass, KindAssociationClass,
		KindComment, KindGeneralization, KindAssociation, KindPIMDiagram, KindPSMDiagram,
		KindContentContainer, KindContentChoice, KindAttributeContainer, KindPSMAssociation,
		KindPSMGeneralization, KindDiagramReference:
		return false
	}
	return false
}
