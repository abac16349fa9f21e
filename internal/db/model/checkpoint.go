package model

const RelayCheckpointCollection = "relay_checkpoints"

// RelayCheckpointDocument records how far the relay has scanned each chain.
// On restart a watcher resumes from the checkpoint instead of re-scanning
// from its configured start block; downstream handlers are idempotent, so a
// crash between publish and checkpoint update only causes redeliveries.
type RelayCheckpointDocument struct {
	ChainId            uint64 `bson:"_id"`
	LastProcessedBlock uint64 `bson:"last_processed_block"`
	UpdatedAt          int64  `bson:"updated_at"`
}
