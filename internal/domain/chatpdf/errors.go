package chatpdf

// Error kind constants used with pkg/errors.Wrap/IsCode throughout the
// ingestion and chat pipelines.
const (
	CodeBlobNotFound       = "blob_not_found"
	CodeBlobAccessDenied   = "blob_access_denied"
	CodeBlobUnavailable    = "blob_unavailable"
	CodeInvalidKeyFormat   = "invalid_key_format"
	CodeCatalogUnavailable = "catalog_unavailable"
	CodeRecordNotFound     = "record_not_found"
	CodeValidationFailure  = "validation_failure"
	CodeExtractionFailure  = "extraction_failure"
	CodeEmbeddingFailure   = "embedding_failure"
	CodeVectorUpsertFail   = "vector_upsert_failure"
	CodeVectorQueryFail    = "vector_query_failure"
	CodeLLMFailure         = "llm_failure"
)
