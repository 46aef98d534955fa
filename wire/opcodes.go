package wire

// APIKey identifies the operation a request envelope carries. The
// Kafka-native keys (Produce, Fetch, Metadata) share numbering with the
// upstream protocol; the chain-replication and admin extensions use values
// above 1000, chosen and documented here since the source sample this was
// distilled from left them unfixed.
const (
	Produce             int16 = 0
	Fetch               int16 = 1
	Metadata            int16 = 3
	Topics              int16 = 1000
	Fetch2              int16 = 1001
	Ensure              int16 = 1002
	Replicate           int16 = 1003
	DeleteTopic         int16 = 1004
	ReplicateDeleteTopic int16 = 1005
)

var apiKeyNames = map[int16]string{
	Produce:              "Produce",
	Fetch:                "Fetch",
	Metadata:             "Metadata",
	Topics:               "Topics",
	Fetch2:               "Fetch2",
	Ensure:               "Ensure",
	Replicate:            "Replicate",
	DeleteTopic:          "DeleteTopic",
	ReplicateDeleteTopic: "ReplicateDeleteTopic",
}

func APIKeyName(k int16) string {
	if name, ok := apiKeyNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Error codes. Values below 128 that overlap Kafka's own wire protocol keep
// Kafka's numbering; values above 128 are chain-replication extensions.
const (
	NoError                 int16 = 0
	UnknownTopicOrPartition int16 = 3
	NotLeaderOrTopicMapChanged int16 = 6
	TimeoutError            int16 = 7
	FetchDisallowed         int16 = 129
	ProduceDisallowed       int16 = 131
	ReplicateDisallowed     int16 = 132
	WriteRepair             int16 = 133
	RateLimited             int16 = 134
	UnknownError            int16 = -1
)

var errorCodeNames = map[int16]string{
	NoError:                    "NoError",
	UnknownTopicOrPartition:    "UnknownTopicOrPartition",
	NotLeaderOrTopicMapChanged: "NotLeaderOrTopicMapChanged",
	TimeoutError:               "TimeoutError",
	FetchDisallowed:            "FetchDisallowed",
	ProduceDisallowed:          "ProduceDisallowed",
	ReplicateDisallowed:        "ReplicateDisallowed",
	WriteRepair:                "WriteRepair",
	RateLimited:                "RateLimited",
	UnknownError:               "UnknownError",
}

func ErrorCodeName(c int16) string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "Unrecognized"
}
