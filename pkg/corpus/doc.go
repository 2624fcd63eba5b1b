/*
Package corpus stores named source texts and a history of the compositions
generated from them in a SQLite database.

Only raw text is stored. Markov graphs are rebuilt from the text for every
composition and are never persisted.
*/
package corpus
