package trace

// HandlerKind is a closed enumeration of the handler-name groups the
// parser dispatches on. The orchestration runtime names handlers with
// fully-qualified strings; KindOf maps them onto this enum so that the
// dispatch table in interpret.go stays exhaustive and a new runtime
// handler lands in KindUnknown (absorbed as a no-op) instead of failing.
type HandlerKind int

const (
	// KindUnknown absorbs handler names the registry does not recognize.
	// Forward-compatible with orchestration-runtime additions.
	KindUnknown HandlerKind = iota

	// KindStepInvoke covers the step-precondition handlers that decide
	// whether an orchestration step runs and which technical profiles are
	// candidates.
	KindStepInvoke

	// KindClaimsExchangeAction through KindClaimsExchangeSelect are the
	// four claims-exchange sub-identities.
	KindClaimsExchangeAction
	KindClaimsExchangeRedirect
	KindClaimsExchangeSubmit
	KindClaimsExchangeSelect

	// KindHomeRealmDiscovery and KindHomeRealmDiscoverySelection cover the
	// interactive provider-selection step type.
	KindHomeRealmDiscovery
	KindHomeRealmDiscoverySelection

	// KindClaimsTransformation covers claims-mapping execution and
	// evaluation handlers.
	KindClaimsTransformation

	// KindSSOParticipant, KindSSOActivation and KindSSOReset map to the
	// boolean SSO session facts.
	KindSSOParticipant
	KindSSOActivation
	KindSSOReset

	// KindJourneyCompletion is the terminal relying-party response
	// handler; KindClaimsIssuance covers token/claims issuance.
	KindJourneyCompletion
	KindClaimsIssuance

	// KindSelfAsserted covers self-asserted message validation.
	KindSelfAsserted

	// KindDisplayControl covers UI display-control action handlers.
	KindDisplayControl

	// KindSubJourneyInvoke and KindSubJourneyReturn drive the journey
	// stack.
	KindSubJourneyInvoke
	KindSubJourneyReturn

	// KindSetup covers machine-state bookkeeping handlers that carry no
	// domain facts.
	KindSetup
)

// StateMachineHandlerPrefix qualifies every state-machine handler name in
// the recorder stream.
const StateMachineHandlerPrefix = "Web.TPEngine.StateMachineHandlers."

// OrchestrationManager is the coordinator named by step-boundary Action
// clips. It is not a handler; the parser treats it as a boundary signal.
const OrchestrationManager = "Web.TPEngine.OrchestrationManager"

// Fully-qualified handler names, grouped by kind.
const (
	HandlerShouldStepBeInvoked       = StateMachineHandlerPrefix + "ShouldOrchestrationStepBeInvokedHandler"
	HandlerClaimsExchangeForStep     = StateMachineHandlerPrefix + "ShouldClaimsExchangeBeInvokedForStepPredicate"
	HandlerProviderSelectionForStep  = StateMachineHandlerPrefix + "ShouldClaimsProviderSelectionBeInvokedPredicate"
	HandlerInitiatingClaimsExchange  = StateMachineHandlerPrefix + "InitiatingClaimsExchangeHandler"
	HandlerClaimsExchangeRedirect    = StateMachineHandlerPrefix + "ClaimsExchangeRedirectHandler"
	HandlerSubmittedClaimsExchange   = StateMachineHandlerPrefix + "SubmittedClaimsExchangeHandler"
	HandlerSelectClaimsExchange      = StateMachineHandlerPrefix + "SelectClaimsExchangeHandler"
	HandlerHomeRealmDiscovery        = StateMachineHandlerPrefix + "HomeRealmDiscoveryHandler"
	HandlerHomeRealmSelection        = StateMachineHandlerPrefix + "HomeRealmDiscoverySelectionHandler"
	HandlerExecuteTransformations    = StateMachineHandlerPrefix + "ExecuteClaimsTransformationsHandler"
	HandlerEvaluateTransformation    = StateMachineHandlerPrefix + "EvaluateClaimsTransformationPredicate"
	HandlerIsSSOParticipant          = StateMachineHandlerPrefix + "IsSSOSessionParticipantPredicate"
	HandlerAddSSOParticipant         = StateMachineHandlerPrefix + "AddSSOSessionParticipantHandler"
	HandlerIsSSOActive               = StateMachineHandlerPrefix + "IsSSOSessionActivePredicate"
	HandlerActivateSSOSession        = StateMachineHandlerPrefix + "ActivateSSOSessionHandler"
	HandlerResetSSOSession           = StateMachineHandlerPrefix + "ResetSSOSessionHandler"
	HandlerSendRelyingPartyResponse  = StateMachineHandlerPrefix + "SendRelyingPartyResponseHandler"
	HandlerIssuanceClaimsExchange    = StateMachineHandlerPrefix + "IssuanceClaimsExchangeHandler"
	HandlerSelfAssertedValidation    = StateMachineHandlerPrefix + "SelfAssertedMessageValidationHandler"
	HandlerValidateSelfAsserted      = StateMachineHandlerPrefix + "ValidateSelfAssertedClaimsHandler"
	HandlerInvokeDisplayControl      = StateMachineHandlerPrefix + "InvokeDisplayControlActionHandler"
	HandlerInvokeSubJourney          = StateMachineHandlerPrefix + "InvokeSubJourneyHandler"
	HandlerSubJourneyCompletion      = StateMachineHandlerPrefix + "SubJourneyCompletionHandler"
	HandlerSetupStateMachine         = StateMachineHandlerPrefix + "SetupStateMachineHandler"
	HandlerMachineEvent              = StateMachineHandlerPrefix + "MachineEventHandler"
	HandlerPreprocessClaims          = StateMachineHandlerPrefix + "PreprocessClaimsHandler"
)

// handlerKinds maps fully-qualified names to their dispatch kind.
var handlerKinds = map[string]HandlerKind{
	HandlerShouldStepBeInvoked:      KindStepInvoke,
	HandlerClaimsExchangeForStep:    KindStepInvoke,
	HandlerProviderSelectionForStep: KindStepInvoke,

	HandlerInitiatingClaimsExchange: KindClaimsExchangeAction,
	HandlerClaimsExchangeRedirect:   KindClaimsExchangeRedirect,
	HandlerSubmittedClaimsExchange:  KindClaimsExchangeSubmit,
	HandlerSelectClaimsExchange:     KindClaimsExchangeSelect,

	HandlerHomeRealmDiscovery: KindHomeRealmDiscovery,
	HandlerHomeRealmSelection: KindHomeRealmDiscoverySelection,

	HandlerExecuteTransformations: KindClaimsTransformation,
	HandlerEvaluateTransformation: KindClaimsTransformation,

	HandlerIsSSOParticipant:   KindSSOParticipant,
	HandlerAddSSOParticipant:  KindSSOParticipant,
	HandlerIsSSOActive:        KindSSOActivation,
	HandlerActivateSSOSession: KindSSOActivation,
	HandlerResetSSOSession:    KindSSOReset,

	HandlerSendRelyingPartyResponse: KindJourneyCompletion,
	HandlerIssuanceClaimsExchange:   KindClaimsIssuance,

	HandlerSelfAssertedValidation: KindSelfAsserted,
	HandlerValidateSelfAsserted:   KindSelfAsserted,

	HandlerInvokeDisplayControl: KindDisplayControl,

	HandlerInvokeSubJourney:     KindSubJourneyInvoke,
	HandlerSubJourneyCompletion: KindSubJourneyReturn,

	HandlerSetupStateMachine: KindSetup,
	HandlerMachineEvent:      KindSetup,
	HandlerPreprocessClaims:  KindSetup,
}

// KindOf resolves a handler statement to its dispatch kind. Unrecognized
// names resolve to KindUnknown.
func KindOf(statement string) HandlerKind {
	if kind, ok := handlerKinds[statement]; ok {
		return kind
	}
	return KindUnknown
}

// IsOrchestrationBoundary reports whether an Action statement names the
// orchestration coordinator, the first half of a step-boundary signal.
func IsOrchestrationBoundary(statement string) bool {
	return statement == OrchestrationManager
}

// Supported event types (Headers EventInstance values, prefix stripped).
// Batches tagged with anything else, e.g. OIDC, METADATA or TOKEN, carry
// protocol traffic rather than journey execution and are filtered out
// entirely.
var supportedEventTypes = map[string]bool{
	"AUTH":           true,
	"API":            true,
	"SELFASSERTED":   true,
	"ClaimsExchange": true,
}

// SupportedEventType reports whether a Headers event type is interpreted.
func SupportedEventType(eventType string) bool {
	return supportedEventTypes[eventType]
}
