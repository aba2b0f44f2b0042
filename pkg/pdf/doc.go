// Package pdf renders invoice PDFs and stores them as artifacts.
//
// Rendering and storage are separated: a Renderer turns an invoice
// into PDF bytes and an ObjectStore persists them under a uuid file
// id. StorageService ties the two together behind the Service
// interface consumed by the delivery pipeline.
package pdf
