package audio

import "vitarp/internal/supervisor"

// ChimeForRecoveryAction maps a recovery FSM action onto the chime it
// should trigger, ok is false when the action warrants silence (e.g. no
// action taken this tick).
func ChimeForRecoveryAction(action supervisor.RecoveryAction) (Chime, bool) {
	switch action {
	case supervisor.RecoveryActionSendIDR:
		return ChimeStreamDegraded, true
	case supervisor.RecoveryActionSoftRestart, supervisor.RecoveryActionGuardedSoftRestart:
		return ChimeReconnecting, true
	case supervisor.RecoveryActionClear:
		return ChimeStreamConnected, true
	default:
		return 0, false
	}
}

// ChimeForQuitReason maps a disconnect quit reason onto the chime the
// disconnect banner's appearance should play.
func ChimeForQuitReason(reason supervisor.QuitReason) Chime {
	if reason == supervisor.QuitUserRequested {
		return ChimeStreamDegraded
	}
	return ChimeStreamLost
}
