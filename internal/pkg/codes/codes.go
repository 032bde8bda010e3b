// Package codes centralizes the user-facing message catalog so issuance and
// verification responses stay byte-stable across handlers.
package codes

const (
	MsgPlsEnterValid           = "Please provide valid details"
	MsgCertIssued              = "Certification already issued"
	MsgCertIssuedSuccess       = "Certification issued successfully"
	MsgCertIdRequired          = "Certification ID is required"
	MsgCertLength              = "Certification ID length must be between the allowed bounds"
	MsgCertBadCharacters       = "Certification ID must not contain special characters"
	MsgInvalidIssuer           = "Invalid Issuer"
	MsgUnauthIssuer            = "Issuer not approved"
	MsgIssuerUnauthorized      = "Issuer not authorized on chain"
	MsgInvalidEthereum         = "Invalid Ethereum address format"
	MsgOpsRestricted           = "Operations restricted: contract is paused"
	MsgProvideValidDates       = "Please provide valid dates"
	MsgFailedAtBlockchain      = "Failed to interact with Blockchain"
	MsgFailedOpsAtBlockchain   = "Failed to perform operation at Blockchain"
	MsgFailedToIssueAfterRetry = "Failed to issue certification after retries"
	MsgInternalError           = "Internal server error"
	MsgDBFailed                = "Database operation failed"
	MsgCertValid               = "Certification is valid"
	MsgCertNotValid            = "Certification is not valid"
	MsgCertNotExist            = "Certification does not exist"
	MsgMultiPagePdf            = "Multiple-page PDF is not supported for verification"
	MsgInvalidPdfTemplate      = "Invalid PDF template dimensions or layout"
	MsgMustZip                 = "Must provide a valid zip file"
	MsgUnableToFindFiles       = "Unable to find files in the provided zip"
	MsgUnableToFindExcelFiles  = "Unable to find an excel sheet in the provided zip"
	MsgUnableToFindPdfFiles    = "Unable to find PDF files in the provided zip"
	MsgNoEntryMatchFound       = "No matching entry found"
	MsgInputRecordsNotMatched  = "Input PDF files do not match the excel records"
	MsgFailedToIssueBulkCerts  = "Failed to issue bulk certifications"
	MsgEnterInvalid            = "Entered invalid input"
	MsgInvalidInput            = "Invalid input provided"
	MsgProvideValidStatus      = "Provide valid issuer status"
	MsgUserNotFound            = "Issuer not found"
	MsgIssuerApproveSuccess    = "Issuer approved successfully"
	MsgIssuerRejectSuccess     = "Issuer rejected successfully"
	MsgRejectedAlready         = "Issuer already rejected"
	MsgExistedVerified         = "Issuer already approved"
	MsgNotVerified             = "Not Verified"
	MsgVerified                = "Verified"
	MsgCertSearchable          = "Certification issued on chain but the record could not be saved; manual reconciliation required"
)
