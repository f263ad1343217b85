package store

import (
	"swiftremit/internal/storage"
	id "swiftremit/pkg/domain"
)

const (
	keyAdmin           storage.Key = "config/admin"
	keyAsset           storage.Key = "config/asset"
	keyFeeBps          storage.Key = "config/fee_bps"
	keyCounter         storage.Key = "config/counter"
	keyAccumulatedFees storage.Key = "config/accumulated_fees"
	keyPaused          storage.Key = "config/paused"
)

func remittanceKey(remittanceID id.RemittanceID) storage.Key {
	return storage.Key("remittance/" + remittanceID.String())
}

func agentKey(agent id.Principal) storage.Key {
	return storage.Key("agent/" + agent.String())
}

func settlementKey(remittanceID id.RemittanceID) storage.Key {
	return storage.Key("settlement/" + remittanceID.String())
}
