package wp

const editorBlockFields = `
fragment EditorBlockFields on EditorBlock {
  name
  clientId
  parentClientId
  renderedHtml
  ... on CoreParagraph { attributes { content dropCap align fontSize textColor backgroundColor className style } }
  ... on CoreHeading { attributes { content level textAlign anchor textColor backgroundColor className style } }
  ... on CoreList { attributes { ordered values start reversed className style } }
  ... on CoreListItem { attributes { content className style } }
  ... on CoreQuote { attributes { value citation align className style } }
  ... on CoreImage { attributes { url alt caption width height align href linkTarget title className style } }
  ... on CoreGallery { attributes { columns caption imageCrop linkTo align className } }
  ... on CoreEmbed { attributes { url caption type providerNameSlug responsive align className } }
  ... on CoreColumns { attributes { verticalAlignment isStackedOnMobile className style } }
  ... on CoreColumn { attributes { width verticalAlignment className style } }
  ... on CoreButtons { attributes { layout className style } }
  ... on CoreButton { attributes { text url linkTarget rel backgroundColor textColor gradient width className style } }
  ... on CoreSeparator { attributes { opacity className style } }
  ... on CoreSpacer { attributes { height className } }
}
`

const imageFields = `
fragment ImageFields on MediaItem {
  sourceUrl
  altText
  mediaDetails { width height }
}
`

const flexibleContentFields = `
fragment FlexibleContentFields on FlexibleContentFlexibleContent_Layout {
  __typename
  ... on FlexibleContentFlexibleContentHeroLayout {
    bandId bandClasses heading subheading content
    backgroundImage { node { ...ImageFields } }
    buttons { button { url title target } }
  }
  ... on FlexibleContentFlexibleContentHeadingLayout { bandId bandClasses heading textAlignment }
  ... on FlexibleContentFlexibleContentCtaButtonsLayout {
    bandId bandClasses content
    buttons { button { url title target } }
  }
  ... on FlexibleContentFlexibleContentImageModuleLayout {
    bandId bandClasses caption
    image { node { ...ImageFields } }
  }
  ... on FlexibleContentFlexibleContentWysiwygLayout { bandId bandClasses content }
  ... on FlexibleContentFlexibleContentAccordionLayout {
    bandId bandClasses
    accordionItems { heading content defaultState }
  }
}
`

const courseFields = `
fragment CourseFields on FlmsCourse {
  courseNumber
  courseDescription
  coursePreview
  wooProductId
  courseCredits { type name credits }
  courseMaterials { title file }
  masterCourseListFields { iarApprovalDate notes }
}
`

// contentNodeFields selects everything the page templates read, for any
// content type.
const contentNodeFields = `
fragment ContentNodeFields on UniformResourceIdentifiable {
  __typename
  id
  uri
  ... on ContentNode { databaseId slug status date modified }
  ... on NodeWithTitle { title }
  ... on Page {
    content
    featuredImage { node { ...ImageFields } }
    template { templateName }
    parent { node { ... on Page { id title uri } } }
    children { nodes { ... on Page { id title uri } } }
    acfPageFields { templateType flexibleContent { ...FlexibleContentFields } }
    acfContactFields { address phone email hours mapEmbed }
    editorBlocks(flat: true) { ...EditorBlockFields }
  }
  ... on Post {
    content
    excerpt
    featuredImage { node { ...ImageFields } }
    categories(first: 5) { nodes { id name slug uri } }
    author { node { id name avatar { url } } }
    editorBlocks(flat: true) { ...EditorBlockFields }
  }
  ... on FlmsCourse { ...CourseFields }
  ... on TermNode { databaseId slug name description count }
}
`

const fragments = contentNodeFields + editorBlockFields + imageFields + flexibleContentFields + courseFields

const queryContentByURI = `
query ContentByURI($uri: String!) {
  nodeByUri(uri: $uri) { ...ContentNodeFields }
}
` + fragments

const queryPreviewContent = `
query PreviewContent($id: ID!) {
  contentNode(id: $id, idType: DATABASE_ID, asPreview: true) { ...ContentNodeFields }
}
` + fragments

const queryPostBySlug = `
query PostBySlug($slug: ID!) {
  post(id: $slug, idType: SLUG) { ...ContentNodeFields }
}
` + fragments

const queryPosts = `
query Posts($first: Int!, $after: String) {
  posts(first: $first, after: $after) {
    nodes {
      __typename id databaseId uri slug status date modified title excerpt
      featuredImage { node { ...ImageFields } }
      categories(first: 5) { nodes { id name slug uri } }
    }
    pageInfo { hasNextPage endCursor }
  }
}
` + imageFields

const queryCourses = `
query Courses($first: Int!, $after: String) {
  flmsCourses(first: $first, after: $after) {
    nodes { __typename id databaseId uri slug status date modified title ...CourseFields }
    pageInfo { hasNextPage endCursor }
  }
}
` + courseFields

const queryPageURIs = `
query PageURIs($first: Int!) {
  pages(first: $first, where: { status: PUBLISH }) { nodes { uri } }
}
`

const queryCourseURIs = `
query CourseURIs($first: Int!) {
  flmsCourses(first: $first) { nodes { uri slug } }
}
`

const querySettings = `
query Settings {
  generalSettings { title description url language timezone }
}
`
