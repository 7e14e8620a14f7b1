package config

const EnvPrefix = "HEIZOEL"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv            = "HEIZOEL_APP_ENV"
	EnvPort              = "HEIZOEL_APP_PORT"
	EnvDBDSN             = "HEIZOEL_DB_DSN"
	EnvDBHost            = "HEIZOEL_DB_HOST"
	EnvDBUser            = "HEIZOEL_DB_USER"
	EnvDBName            = "HEIZOEL_DB_NAME"
	EnvRedisURL          = "HEIZOEL_REDIS_URL"
	EnvJWTSecret         = "HEIZOEL_JWT_SECRET"
	EnvJWTIssuer         = "HEIZOEL_JWT_ISSUER"
	EnvShopDomains       = "HEIZOEL_SHOP_DOMAINS"
	EnvSupplierPolicy    = "HEIZOEL_SUPPLIER_SELECTION_POLICY"
	EnvBankAccountPolicy = "HEIZOEL_BANK_ACCOUNT_SELECTION_POLICY"
	EnvTransitionPolicy  = "HEIZOEL_STATUS_TRANSITION_POLICY"
	EnvMergePolicy       = "HEIZOEL_LIVE_MERGE_POLICY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

// Selection policies for supplier and bank account resolution.
const (
	SelectionPolicyFirst           = "first"
	SelectionPolicyRejectAmbiguous = "reject_ambiguous"
)

// Status transition policies for the audit trail.
const (
	TransitionPolicyFree   = "free"
	TransitionPolicyStrict = "strict"
)

// Live-update merge policies for open order viewers.
const (
	MergePolicyAppend = "append"
	MergePolicyUpsert = "upsert"
)
