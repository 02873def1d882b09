// ABOUTME: The closed taxonomy of closure kinds found on the heap
// ABOUTME: Provides names, parsing and shape predicates for each kind

package heap

import "fmt"

// Kind is the structural category of a closure. The set is closed: adding a
// kind means extending kindNames and every switch over Kind in the trav
// package, which the trav exhaustiveness tests check.
type Kind uint8

const (
	Invalid Kind = iota
	Constr
	Constr1_0
	Constr0_1
	Constr2_0
	Constr1_1
	Constr0_2
	ConstrNoCAF
	Fun
	Fun1_0
	Fun0_1
	Fun2_0
	Fun1_1
	Fun0_2
	FunStatic
	Thunk
	Thunk1_0
	Thunk0_1
	Thunk2_0
	Thunk1_1
	Thunk0_2
	ThunkStatic
	ThunkSelector
	BCO
	AP
	PAP
	APStack
	Ind
	IndStatic
	RetBCO
	RetSmall
	RetBig
	RetFun
	UpdateFrame
	CatchFrame
	UnderflowFrame
	StopFrame
	BlockingQueue
	Blackhole
	MVarClean
	MVarDirty
	TVar
	ArrWords
	MutArrPtrsClean
	MutArrPtrsDirty
	MutArrPtrsFrozenDirty
	MutArrPtrsFrozenClean
	MutVarClean
	MutVarDirty
	Weak
	Prim
	MutPrim
	TSO
	Stack
	TRecChunk
	AtomicallyFrame
	CatchRetryFrame
	CatchSTMFrame
	WhiteHole
	SmallMutArrPtrsClean
	SmallMutArrPtrsDirty
	SmallMutArrPtrsFrozenDirty
	SmallMutArrPtrsFrozenClean
	CompactNFData

	// NumKinds is the number of kinds, Invalid included.
	NumKinds
)

var kindNames = [NumKinds]string{
	Invalid:                    "INVALID_OBJECT",
	Constr:                     "CONSTR",
	Constr1_0:                  "CONSTR_1_0",
	Constr0_1:                  "CONSTR_0_1",
	Constr2_0:                  "CONSTR_2_0",
	Constr1_1:                  "CONSTR_1_1",
	Constr0_2:                  "CONSTR_0_2",
	ConstrNoCAF:                "CONSTR_NOCAF",
	Fun:                        "FUN",
	Fun1_0:                     "FUN_1_0",
	Fun0_1:                     "FUN_0_1",
	Fun2_0:                     "FUN_2_0",
	Fun1_1:                     "FUN_1_1",
	Fun0_2:                     "FUN_0_2",
	FunStatic:                  "FUN_STATIC",
	Thunk:                      "THUNK",
	Thunk1_0:                   "THUNK_1_0",
	Thunk0_1:                   "THUNK_0_1",
	Thunk2_0:                   "THUNK_2_0",
	Thunk1_1:                   "THUNK_1_1",
	Thunk0_2:                   "THUNK_0_2",
	ThunkStatic:                "THUNK_STATIC",
	ThunkSelector:              "THUNK_SELECTOR",
	BCO:                        "BCO",
	AP:                         "AP",
	PAP:                        "PAP",
	APStack:                    "AP_STACK",
	Ind:                        "IND",
	IndStatic:                  "IND_STATIC",
	RetBCO:                     "RET_BCO",
	RetSmall:                   "RET_SMALL",
	RetBig:                     "RET_BIG",
	RetFun:                     "RET_FUN",
	UpdateFrame:                "UPDATE_FRAME",
	CatchFrame:                 "CATCH_FRAME",
	UnderflowFrame:             "UNDERFLOW_FRAME",
	StopFrame:                  "STOP_FRAME",
	BlockingQueue:              "BLOCKING_QUEUE",
	Blackhole:                  "BLACKHOLE",
	MVarClean:                  "MVAR_CLEAN",
	MVarDirty:                  "MVAR_DIRTY",
	TVar:                       "TVAR",
	ArrWords:                   "ARR_WORDS",
	MutArrPtrsClean:            "MUT_ARR_PTRS_CLEAN",
	MutArrPtrsDirty:            "MUT_ARR_PTRS_DIRTY",
	MutArrPtrsFrozenDirty:      "MUT_ARR_PTRS_FROZEN_DIRTY",
	MutArrPtrsFrozenClean:      "MUT_ARR_PTRS_FROZEN_CLEAN",
	MutVarClean:                "MUT_VAR_CLEAN",
	MutVarDirty:                "MUT_VAR_DIRTY",
	Weak:                       "WEAK",
	Prim:                       "PRIM",
	MutPrim:                    "MUT_PRIM",
	TSO:                        "TSO",
	Stack:                      "STACK",
	TRecChunk:                  "TREC_CHUNK",
	AtomicallyFrame:            "ATOMICALLY_FRAME",
	CatchRetryFrame:            "CATCH_RETRY_FRAME",
	CatchSTMFrame:              "CATCH_STM_FRAME",
	WhiteHole:                  "WHITEHOLE",
	SmallMutArrPtrsClean:       "SMALL_MUT_ARR_PTRS_CLEAN",
	SmallMutArrPtrsDirty:       "SMALL_MUT_ARR_PTRS_DIRTY",
	SmallMutArrPtrsFrozenDirty: "SMALL_MUT_ARR_PTRS_FROZEN_DIRTY",
	SmallMutArrPtrsFrozenClean: "SMALL_MUT_ARR_PTRS_FROZEN_CLEAN",
	CompactNFData:              "COMPACT_NFDATA",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, NumKinds)
	for k, name := range kindNames {
		m[name] = Kind(k)
	}
	return m
}()

// String returns the runtime's name for the kind, e.g. "CONSTR_2_0".
func (k Kind) String() string {
	if k < NumKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind returns the kind with the given runtime name.
func ParseKind(name string) (Kind, error) {
	k, ok := kindsByName[name]
	if !ok {
		return Invalid, fmt.Errorf("unknown closure kind %q", name)
	}
	return k, nil
}

// Valid reports whether k names a real closure kind.
func (k Kind) Valid() bool {
	return k > Invalid && k < NumKinds
}

// IsFrame reports whether k is a stack frame kind. Frame kinds only occur
// inside STACK and AP_STACK payloads, never as standalone heap closures.
func (k Kind) IsFrame() bool {
	switch k {
	case RetBCO, RetSmall, RetBig, RetFun,
		UpdateFrame, CatchFrame, UnderflowFrame, StopFrame,
		AtomicallyFrame, CatchRetryFrame, CatchSTMFrame:
		return true
	}
	return false
}

// IsFun reports whether k is a function closure kind.
func (k Kind) IsFun() bool {
	switch k {
	case Fun, Fun1_0, Fun0_1, Fun2_0, Fun1_1, Fun0_2, FunStatic:
		return true
	}
	return false
}

// IsThunk reports whether k is a suspended computation carrying an SRT.
func (k Kind) IsThunk() bool {
	switch k {
	case Thunk, Thunk1_0, Thunk0_1, Thunk2_0, Thunk1_1, Thunk0_2, ThunkStatic:
		return true
	}
	return false
}

// IsStatic reports whether closures of kind k live in static data.
func (k Kind) IsStatic() bool {
	switch k {
	case ConstrNoCAF, FunStatic, ThunkStatic, IndStatic:
		return true
	}
	return false
}

// Fields returns the number of named pointer fields a fixed-shape kind keeps
// at the front of its payload, or 0 for kinds without named fields.
func (k Kind) Fields() int {
	switch k {
	case MutVarClean, MutVarDirty, ThunkSelector, Blackhole, Ind, IndStatic,
		Constr1_0, Constr1_1, Fun1_0, Fun1_1, Thunk1_0, Thunk1_1:
		return 1
	case Constr2_0, Fun2_0, Thunk2_0:
		return 2
	case MVarClean, MVarDirty, Weak, BlockingQueue:
		return 3
	}
	return 0
}
