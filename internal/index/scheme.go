package index

var (
	bMeta  = []byte("meta")  // id -> post json (without content)
	bOrder = []byte("order") // seq(8) -> id, catalog insertion order
	bState = []byte("state") // build bookkeeping

	bIdxCat  = []byte("idx_cat")  // cat -> sub-bucket of invTime+0x00+id
	bIdxTag  = []byte("idx_tag")  // tag -> sub-bucket of invTime+0x00+id
	bIdxDate = []byte("idx_date") // invTime+0x00+id

	// 不随 Rebuild 清空
	bFingerprint = []byte("fingerprint") // route -> fingerprint json
)

var keyBuiltAt = []byte("built_at")
