package bootstrapper

// DefaultLogIndexName is overridable through configuration; the mapping is not.
const DefaultLogIndexName = "noclense_log_index"

var logIndex = map[string]interface{}{
	"settings": map[string]interface{}{
		"number_of_shards":   1,
		"number_of_replicas": 0,
		"analysis": map[string]interface{}{
			"analyzer": map[string]interface{}{
				"message_analyzer": map[string]interface{}{
					"type":      "custom",
					"tokenizer": "standard",
					"filter":    []string{"lowercase"},
				},
			},
		},
	},
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			"id": map[string]interface{}{
				"type": "long",
			},
			// epoch milliseconds, matching LogEntry.Timestamp
			"timestamp": map[string]interface{}{
				"type":   "date",
				"format": "epoch_millis",
			},
			"rawTimestamp": map[string]interface{}{
				"type": "keyword",
			},
			"level": map[string]interface{}{
				"type": "keyword",
			},
			"component": map[string]interface{}{
				"type": "keyword",
			},
			"displayComponent": map[string]interface{}{
				"type": "keyword",
			},
			"message": map[string]interface{}{
				"type":     "text",
				"analyzer": "message_analyzer",
			},
			"payload": map[string]interface{}{
				"type":     "text",
				"analyzer": "message_analyzer",
			},
			"type": map[string]interface{}{
				"type": "keyword",
			},
			"isSip": map[string]interface{}{
				"type": "boolean",
			},
			"sipMethod": map[string]interface{}{
				"type": "keyword",
			},
			"callId": map[string]interface{}{
				"type": "keyword",
			},
			"reportId": map[string]interface{}{
				"type": "keyword",
			},
			"operatorId": map[string]interface{}{
				"type": "keyword",
			},
			"extensionId": map[string]interface{}{
				"type": "keyword",
			},
			"stationId": map[string]interface{}{
				"type": "keyword",
			},
			"cncId": map[string]interface{}{
				"type": "keyword",
			},
			"messageId": map[string]interface{}{
				"type": "keyword",
			},
			"messageType": map[string]interface{}{
				"type": "keyword",
			},
			"fileName": map[string]interface{}{
				"type": "keyword",
			},
		},
	},
}
